package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/types"
)

func collectEvents(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream never closed")
		}
	}
}

func TestStreamEventOrder(t *testing.T) {
	coord := &fakeCoordinator{page: cannedPage()}
	sess := NewSession(coord, nil)

	events := collectEvents(t, sess.Stream(context.Background(), "what is golang"))
	require.NotEmpty(t, events)

	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, EventThinking, events[1].Type)
	assert.Equal(t, EventDone, events[len(events)-1].Type)

	var citations, tokens int
	for _, ev := range events {
		switch ev.Type {
		case EventCitation:
			citations++
			require.NotNil(t, ev.Citation)
		case EventToken:
			tokens++
		}
	}
	assert.Equal(t, 2, citations, "one citation per evidence hit")
	assert.Greater(t, tokens, 0)
}

func TestStreamTranscriptAndCanvas(t *testing.T) {
	coord := &fakeCoordinator{page: cannedPage()}
	sess := NewSession(coord, nil)

	collectEvents(t, sess.Stream(context.Background(), "what is golang"))

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "what is golang", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.NotEmpty(t, msgs[1].Content)
	assert.Len(t, msgs[1].Citations, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)

	canvas := sess.Canvas()
	require.Len(t, canvas.Blocks, 2)
	assert.Equal(t, "text", canvas.Blocks[0].Kind)
	assert.Equal(t, "sources", canvas.Blocks[1].Kind)
	assert.Contains(t, canvas.Blocks[1].Content, "https://example.com/1")
}

func TestStreamError(t *testing.T) {
	coord := &fakeCoordinator{err: types.NewError(types.KindNotFound, "no engines")}
	sess := NewSession(coord, nil)

	events := collectEvents(t, sess.Stream(context.Background(), "anything"))
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	assert.Equal(t, types.KindNotFound, types.KindOf(last.Err))

	msgs := sess.Messages()
	require.Len(t, msgs, 1, "failed turn records only the user message")
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	coord := &fakeCoordinator{page: cannedPage(), onSearch: cancel}
	sess := NewSession(coord, nil)

	events := collectEvents(t, sess.Stream(ctx, "what is golang"))
	for _, ev := range events {
		assert.NotEqual(t, EventDone, ev.Type, "cancelled stream never completes")
	}
}

func TestClosedSessionRejectsQueries(t *testing.T) {
	sess := NewSession(&fakeCoordinator{page: cannedPage()}, nil)
	sess.Close()

	events := collectEvents(t, sess.Stream(context.Background(), "anything"))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, types.KindValidation, types.KindOf(events[0].Err))
}

func TestAsk(t *testing.T) {
	coord := &fakeCoordinator{page: cannedPage()}
	sess := NewSession(coord, nil)

	msg, err := sess.Ask(context.Background(), "what is golang")
	require.NoError(t, err)
	assert.Equal(t, "assistant", msg.Role)
	assert.Contains(t, msg.Content, "one", "extractive answer stitches snippets")
}

func TestSessionIDsUnique(t *testing.T) {
	coord := &fakeCoordinator{page: cannedPage()}
	a := NewSession(coord, nil)
	b := NewSession(coord, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}
