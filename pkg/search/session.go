package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// EventType tags one streaming event.
type EventType string

const (
	EventStart    EventType = "start"
	EventThinking EventType = "thinking"
	EventCitation EventType = "citation"
	EventToken    EventType = "token"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one element of a streamed answer. The stream is finite: it
// always ends with done or error, then the channel closes.
type Event struct {
	Type     EventType  `json:"type"`
	Token    string     `json:"token,omitempty"`
	Citation *types.Hit `json:"citation,omitempty"`
	Err      error      `json:"-"`
}

// Message is one turn in a session.
type Message struct {
	ID        string      `json:"id"`
	Role      string      `json:"role"` // "user" or "assistant"
	Content   string      `json:"content"`
	Citations []types.Hit `json:"citations,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Block is one ordered element of the session canvas.
type Block struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "text", "sources"
	Content string `json:"content,omitempty"`
}

// Canvas is the ordered working surface a session builds up.
type Canvas struct {
	Blocks []Block `json:"blocks"`
}

// Answerer composes an answer from the question and its evidence. The
// default implementation is extractive; deployments may plug in a
// model-backed one.
type Answerer interface {
	Answer(ctx context.Context, question string, evidence []types.Hit) (string, error)
}

// extractiveAnswerer stitches the top snippets together. It keeps the
// session service self-contained when no model is configured.
type extractiveAnswerer struct{}

func (extractiveAnswerer) Answer(_ context.Context, question string, evidence []types.Hit) (string, error) {
	if len(evidence) == 0 {
		return "No sources found for: " + question, nil
	}
	var b strings.Builder
	for i, h := range evidence {
		if i == 3 {
			break
		}
		if h.Snippet == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimSpace(h.Snippet))
	}
	if b.Len() == 0 {
		return evidence[0].Title, nil
	}
	return b.String(), nil
}

const evidenceLimit = 5

// Session is one AI conversation: ordered messages plus a canvas.
// A session is bound to the context it was created with; cancelling
// that context ends any in-flight stream.
type Session struct {
	ID string

	coordinator Coordinator
	answerer    Answerer

	mu       sync.Mutex
	messages []Message
	canvas   Canvas
	closed   bool
}

// NewSession creates an empty session. A nil answerer gets the
// built-in extractive one.
func NewSession(coordinator Coordinator, answerer Answerer) *Session {
	if answerer == nil {
		answerer = extractiveAnswerer{}
	}
	return &Session{
		ID:          uuid.NewString(),
		coordinator: coordinator,
		answerer:    answerer,
	}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Canvas returns a copy of the canvas.
func (s *Session) Canvas() Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	blocks := make([]Block, len(s.canvas.Blocks))
	copy(blocks, s.canvas.Blocks)
	return Canvas{Blocks: blocks}
}

// Close marks the session finished; further queries fail.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Ask runs one non-streaming turn: gather evidence, compose the
// answer, append both messages, and extend the canvas.
func (s *Session) Ask(ctx context.Context, question string) (*Message, error) {
	for ev := range s.Stream(ctx, question) {
		if ev.Type == EventError {
			return nil, ev.Err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.messages[len(s.messages)-1]
	if last.Role != "assistant" {
		return nil, types.NewError(types.KindInternal, "stream ended without an answer")
	}
	return &last, nil
}

// Stream runs one streaming turn. The returned channel is a finite,
// non-restartable sequence: start, thinking, citations, tokens, then
// done (or error), after which the channel closes. Cancelling ctx ends
// the stream with an error event.
func (s *Session) Stream(ctx context.Context, question string) <-chan Event {
	out := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		out <- Event{Type: EventError, Err: types.NewError(types.KindValidation, "session closed")}
		close(out)
		return out
	}
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   question,
		CreatedAt: time.Now(),
	})
	s.mu.Unlock()

	go s.run(ctx, question, out)
	return out
}

func (s *Session) run(ctx context.Context, question string, out chan<- Event) {
	defer close(out)

	emit := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(Event{Type: EventStart}) {
		return
	}
	if !emit(Event{Type: EventThinking}) {
		return
	}

	evidence, err := s.gatherEvidence(ctx, question)
	if err != nil {
		emit(Event{Type: EventError, Err: err})
		return
	}
	for i := range evidence {
		if !emit(Event{Type: EventCitation, Citation: &evidence[i]}) {
			return
		}
	}

	answer, err := s.answerer.Answer(ctx, question, evidence)
	if err != nil {
		emit(Event{Type: EventError, Err: err})
		return
	}

	for _, tok := range strings.Fields(answer) {
		if !emit(Event{Type: EventToken, Token: tok}) {
			return
		}
	}

	s.record(answer, evidence)
	emit(Event{Type: EventDone})
}

func (s *Session) gatherEvidence(ctx context.Context, question string) ([]types.Hit, error) {
	q, err := types.NewQuery(question, types.QueryOptions{PerPage: evidenceLimit})
	if err != nil {
		return nil, err
	}
	page, err := s.coordinator.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	hits := page.Results
	if len(hits) > evidenceLimit {
		hits = hits[:evidenceLimit]
	}
	return hits, nil
}

// record appends the assistant message and extends the canvas.
func (s *Session) record(answer string, citations []types.Hit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Content:   answer,
		Citations: citations,
		CreatedAt: time.Now(),
	})

	s.canvas.Blocks = append(s.canvas.Blocks, Block{
		ID:      uuid.NewString(),
		Kind:    "text",
		Content: answer,
	})
	if len(citations) > 0 {
		urls := make([]string, len(citations))
		for i, c := range citations {
			urls[i] = c.URL
		}
		s.canvas.Blocks = append(s.canvas.Blocks, Block{
			ID:      uuid.NewString(),
			Kind:    "sources",
			Content: strings.Join(urls, "\n"),
		})
	}
}
