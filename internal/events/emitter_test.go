package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	log, _ := logger.GetTestLogger(t)

	newEvent := func(t *testing.T) *ItemEvent {
		event, err := NewItemEvent(TypeItemUpdated, testItem(), time.Now())
		require.NoError(t, err)
		return event
	}

	t.Run("emit event with no handlers", func(t *testing.T) {
		warnLog, buf := logger.GetTestLogger(t)
		emitter := NewInMemoryEventEmitter(warnLog)
		event := newEvent(t)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
		logger.AssertLogContains(t, buf, "item event dropped, no handlers registered")
		logger.AssertLogField(t, buf, "item_id", event.ItemID.String())
	})

	t.Run("nil event", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		handler := &MockEventHandler{}
		emitter.RegisterHandler(handler)

		assert.ErrorIs(t, emitter.EmitEvent(context.Background(), nil), ErrNilEvent)
		assert.Zero(t, handler.HandledCount)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := newEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		handlerErr := failingHandler.HandlerError
		err := emitter.EmitEvent(context.Background(), newEvent(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, handlerErr)
		assert.Contains(t, err.Error(), "handler 0")

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})

	t.Run("every handler error is reported", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		first := errors.New("audit sink down")
		second := errors.New("webhook timeout")
		emitter.RegisterHandler(&MockEventHandler{HandlerError: first})
		emitter.RegisterHandler(&MockEventHandler{})
		emitter.RegisterHandler(&MockEventHandler{HandlerError: second})

		err := emitter.EmitEvent(context.Background(), newEvent(t))
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
		assert.Contains(t, err.Error(), "handler 2")
	})

	t.Run("handlers log through the emitter", func(t *testing.T) {
		handlerLog, buf := logger.GetTestLogger(t)
		emitter := NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(NewLogHandler(handlerLog))

		require.NoError(t, emitter.EmitEvent(context.Background(), newEvent(t)))
		logger.AssertLogContains(t, buf, "item lifecycle event")
		logger.AssertLogField(t, buf, "event_type", TypeItemUpdated)
	})
}
