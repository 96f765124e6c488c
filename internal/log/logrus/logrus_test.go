package logrus_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	loglogrus "github.com/zhoujuxi2028/consoleqa/internal/log/logrus"
)

func TestLogrusLogger(t *testing.T) {
	tests := map[string]struct {
		log    func(l log.Logger)
		expOut []string
	}{
		"Values should be added to the log line.": {
			log: func(l log.Logger) {
				l.WithValues(log.Kv{"component": "PTN"}).Infof("checking %s", "version")
			},
			expOut: []string{`"component":"PTN"`, `"msg":"checking version"`, `"level":"info"`},
		},

		"Context values should be added to the log line.": {
			log: func(l log.Logger) {
				ctx := l.SetValuesOnCtx(context.Background(), log.Kv{"recipe": "system-updates"})
				ctx = l.SetValuesOnCtx(ctx, log.Kv{"step": 1})
				l.WithCtxValues(ctx).Warningf("step failed")
			},
			expOut: []string{`"recipe":"system-updates"`, `"step":1`, `"level":"warning"`},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			var out bytes.Buffer
			l := logrus.New()
			l.Out = &out
			l.SetFormatter(&logrus.JSONFormatter{})

			test.log(loglogrus.NewLogrus(logrus.NewEntry(l)))

			for _, exp := range test.expOut {
				assert.Contains(out.String(), exp)
			}
		})
	}
}
