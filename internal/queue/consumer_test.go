package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/BartekS5/archimport/internal/etl"
	"github.com/BartekS5/archimport/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, "error")
	os.Exit(m.Run())
}

// settle records how a delivery was acknowledged.
type settle struct {
	acked, nacked, requeued bool
}

func (s *settle) Ack(uint64, bool) error { s.acked = true; return nil }

func (s *settle) Nack(_ uint64, _ bool, requeue bool) error {
	s.nacked, s.requeued = true, requeue
	return nil
}

func (s *settle) Reject(_ uint64, requeue bool) error { return s.Nack(0, false, requeue) }

func delivery(body string, redelivered bool) (amqp.Delivery, *settle) {
	s := &settle{}
	return amqp.Delivery{Acknowledger: s, Body: []byte(body), Redelivered: redelivered, MessageId: "m-1"}, s
}

const validJob = `{"job_id":"j-1","file_path":"/data/a.csv","sector":"museum","options":{"update":"legacyId","update_mode":"merge","limit":10}}`

func TestDecodeJob(t *testing.T) {
	job, err := DecodeJob([]byte(validJob))
	require.NoError(t, err)
	assert.Equal(t, Job{
		JobID:    "j-1",
		FilePath: "/data/a.csv",
		Sector:   "museum",
		Options:  JobOptions{Update: "legacyId", UpdateMode: "merge", Limit: 10},
	}, job)

	job, err = DecodeJob([]byte(`{"file_path":"a.csv","mapping":"3"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobID)

	for _, body := range []string{`not json`, `{"mapping":"3"}`, `{"file_path":"a.csv"}`} {
		_, err := DecodeJob([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestDispatch(t *testing.T) {
	setup := &etl.SetupError{Reason: etl.ErrNoRows}

	tests := []struct {
		name        string
		body        string
		redelivered bool
		err         error
		want        settle
	}{
		{"success", validJob, false, nil, settle{acked: true}},
		{"row errors", validJob, false, fmt.Errorf("job j-1: %w", etl.ErrRowsFailed), settle{acked: true}},
		{"setup error", validJob, false, fmt.Errorf("run: %w", setup), settle{nacked: true}},
		{"transient failure", validJob, false, errors.New("connection reset"), settle{nacked: true, requeued: true}},
		{"failed twice", validJob, true, errors.New("connection reset"), settle{nacked: true}},
		{"bad body", `{`, false, nil, settle{nacked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, s := delivery(tt.body, tt.redelivered)
			var got *Job
			Dispatch(context.Background(), d, func(_ context.Context, job Job) error {
				got = &job
				return tt.err
			})
			assert.Equal(t, tt.want, *s)
			if tt.body == validJob {
				require.NotNil(t, got)
				assert.Equal(t, "j-1", got.JobID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
