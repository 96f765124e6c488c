package playwright

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutMS(t *testing.T) {
	tests := map[string]struct {
		ctx    func() (context.Context, context.CancelFunc)
		expMin float64
		expMax float64
	}{
		"Without deadline the default timeout should be used.": {
			ctx:    func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			expMin: 10000,
			expMax: 10000,
		},

		"The context deadline should bound the timeout.": {
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 2*time.Second)
			},
			expMin: 1000,
			expMax: 2000,
		},

		"An expired deadline should not disable the timeout.": {
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
			},
			expMin: 1,
			expMax: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := test.ctx()
			defer cancel()

			got := timeoutMS(ctx)
			assert.GreaterOrEqual(t, *got, test.expMin)
			assert.LessOrEqual(t, *got, test.expMax)
		})
	}
}
