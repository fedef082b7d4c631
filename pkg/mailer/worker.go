package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/zuetani/earth-tribe/pkg/mailer/templates"
)

// Sender delivers a rendered email. *Mailgun implements it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Drop
	Requeue
)

var errEmptyJob = errors.New("email job has no recipient or body")

// Worker renders queued EmailJobs and hands them to a Sender.
type Worker struct {
	Sender  Sender
	Logger  *logrus.Logger
	AppName string
	Timeout time.Duration
}

// Handle processes one queue message. Malformed or unrenderable jobs are dropped;
// send failures are requeued.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	subject, text, html, err := w.render(&job)
	if err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("render email failed")
		return Drop
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("to", job.To).Error("send email failed")
		return Requeue
	}
	w.Logger.WithField("to", job.To).WithField("template", job.Template).Info("email sent")
	return Ack
}

func (w *Worker) render(job *EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", errEmptyJob
	}
	if job.Template == "" {
		if job.Text == "" && job.HTML == "" {
			return "", "", "", errEmptyJob
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	job.withRecipient()
	if _, ok := job.Data["AppName"]; !ok && w.AppName != "" {
		job.Data["AppName"] = w.AppName
	}
	return mailtpl.Render(job.Template, job.Data)
}
