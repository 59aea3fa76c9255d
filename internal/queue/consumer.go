// Package queue runs import jobs delivered through RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BartekS5/archimport/internal/etl"
	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// JobOptions mirrors the import command flags.
type JobOptions struct {
	Output       string `json:"output,omitempty"`
	OutputFile   string `json:"output_file,omitempty"`
	Repository   string `json:"repository,omitempty"`
	Parent       int64  `json:"parent,omitempty"`
	Culture      string `json:"culture,omitempty"`
	Update       string `json:"update,omitempty"`
	UpdateMode   string `json:"update_mode,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	ValidateOnly bool   `json:"validate_only,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Skip         int    `json:"skip,omitempty"`
	Sheet        int    `json:"sheet,omitempty"`
	Delimiter    string `json:"delimiter,omitempty"`
}

// Job is one queued import.
type Job struct {
	JobID    string     `json:"job_id"`
	FilePath string     `json:"file_path"`
	Mapping  string     `json:"mapping,omitempty"`
	Sector   string     `json:"sector,omitempty"`
	Options  JobOptions `json:"options"`
}

// DecodeJob parses a message body; a job without an id gets a fresh one.
func DecodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("error decoding job: %w", err)
	}
	if job.FilePath == "" {
		return job, errors.New("job has no file_path")
	}
	if job.Mapping == "" && job.Sector == "" {
		return job, errors.New("job names neither mapping nor sector")
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	return job, nil
}

// Handler runs one job.
type Handler func(ctx context.Context, job Job) error

// Consumer reads jobs from one queue with manual acknowledgement.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	workerID  string
	handler   Handler
}

// NewConsumer dials url, sets the prefetch count and declares queueName as durable.
func NewConsumer(url, queueName string, prefetch int, handler Handler) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error opening channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("error setting Qos: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		workerID:  fmt.Sprintf("worker-%s-%s", queueName, hostname),
		handler:   handler,
	}, nil
}

// Start consumes until ctx is cancelled or the channel closes. Jobs run one at a time.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		c.workerID,  // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("error registering consumer: %w", err)
	}
	logger.Infof("[%s] consuming from %s", c.workerID, c.queueName)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("[%s] stopping: %v", c.workerID, ctx.Err())
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			Dispatch(ctx, d, c.handler)
		}
	}
}

// Dispatch runs one delivery through handler and settles it:
//   - success, or a run that finished with row errors: ack
//   - undecodable job or setup error: nack without requeue
//   - any other failure: requeue once, then drop
func Dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	job, err := DecodeJob(d.Body)
	if err != nil {
		logger.Errorf("message %s rejected: %v", d.MessageId, err)
		_ = d.Nack(false, false)
		return
	}

	log := logger.With("job_id", job.JobID, "file", job.FilePath)
	log.Info("job started", "mapping", job.Mapping, "sector", job.Sector)

	err = handler(ctx, job)
	var setup *etl.SetupError
	switch {
	case err == nil:
		log.Info("job finished")
		_ = d.Ack(false)
	case errors.Is(err, etl.ErrRowsFailed):
		log.Warn("job finished with row errors")
		_ = d.Ack(false)
	case errors.As(err, &setup):
		log.Error("job rejected", "error", err)
		_ = d.Nack(false, false)
	case !d.Redelivered:
		log.Warn("job failed, requeueing", "error", err)
		_ = d.Nack(false, true)
	default:
		log.Error("job failed again, dropping", "error", err)
		_ = d.Nack(false, false)
	}
}

// Close closes the channel and the connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
