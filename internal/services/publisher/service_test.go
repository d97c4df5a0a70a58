package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

type publishFunc func(ctx context.Context, env models.Envelope) error

func (f publishFunc) Publish(ctx context.Context, env models.Envelope) error { return f(ctx, env) }

func TestFanOutSurvivesFailingSinks(t *testing.T) {
	svc := NewService(&config.Config{WorkerID: "test"})

	var got []models.MessageType
	svc.Register("broken", publishFunc(func(context.Context, models.Envelope) error {
		return errors.New("connection refused")
	}))
	svc.Register("panicky", publishFunc(func(context.Context, models.Envelope) error {
		panic("boom")
	}))
	svc.Register("recorder", publishFunc(func(_ context.Context, env models.Envelope) error {
		got = append(got, env.Type)
		return nil
	}))
	svc.Register("nil", nil)

	ctx := context.Background()
	assert.NoError(t, svc.Publish(ctx, models.Envelope{Type: models.MessageEvent}))
	assert.NoError(t, svc.Publish(ctx, models.Envelope{Type: models.MessageStatistics}))

	assert.Equal(t, []models.MessageType{models.MessageEvent, models.MessageStatistics}, got)
	assert.Equal(t, []string{"broken", "panicky", "recorder"}, svc.Sinks())
}
