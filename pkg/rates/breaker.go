package rates

// Breaker counts failed fetches across batches of one ingestion run. Any
// batch that yields rows resets the count; reaching the threshold trips it.
type Breaker struct {
	threshold int
	failures  int
}

func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold}
}

// Observe folds one batch of outcomes into the breaker and returns the rows
// it produced.
func (b *Breaker) Observe(outcomes []FetchOutcome) int {
	rows := 0
	for _, o := range outcomes {
		if o.Err != nil {
			b.failures++
			continue
		}
		rows += len(o.Rates)
	}
	if rows > 0 {
		b.failures = 0
	}
	return rows
}

func (b *Breaker) Failures() int { return b.failures }

// Tripped reports whether the run must stop.
func (b *Breaker) Tripped() bool {
	return b.threshold > 0 && b.failures >= b.threshold
}
