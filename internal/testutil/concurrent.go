package testutil

import "sync"

// ConcurrentTestRunner runs functions in parallel and collects their errors.
type ConcurrentTestRunner struct {
	t TestingTB
}

// NewConcurrentTestRunner creates a runner reporting through t.
func NewConcurrentTestRunner(t TestingTB) *ConcurrentTestRunner {
	return &ConcurrentTestRunner{t: t}
}

// RunConcurrent starts every function at once and returns their errors in argument order.
func (r *ConcurrentTestRunner) RunConcurrent(funcs ...func() error) []error {
	r.t.Helper()

	errs := make([]error, len(funcs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

// AssertNoErrors fails the test on the first non-nil error.
func (r *ConcurrentTestRunner) AssertNoErrors(errs []error) {
	r.t.Helper()
	for i, err := range errs {
		if err != nil {
			r.t.Fatalf("concurrent operation %d failed: %v", i, err)
		}
	}
}
