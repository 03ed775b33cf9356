package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papergraph/papergraph/internal/models"
)

// NotFoundAnswer is the exact reply when the context cannot answer the
// question. The prompt instructs the model to emit it verbatim, and the
// responder emits it itself when retrieval yields nothing.
const NotFoundAnswer = "No encontrado en el documento."

// maxMemoryTurns bounds the conversation history sent to the model. A turn
// is one user message plus one assistant reply.
const maxMemoryTurns = 10

const answerPromptTemplate = `Eres un asistente experto en análisis de documentos.

Contexto recuperado del documento (fragmentos reales):
%s

Pregunta del usuario:
%s

Reglas estrictas:
- Solo puedes responder utilizando la información del contexto.
- Si la respuesta NO está en el contexto, responde EXACTAMENTE:
  "No encontrado en el documento."
- Incluye siempre:
   * Un texto corto con la respuesta directa
   * Entre 1 y 2 citas textuales EXACTAS del contexto
   * La página (page_number) de donde proviene la información
- No inventes nada que no esté explícito en el texto.
- No incluyas opiniones ni resúmenes innecesarios.
- Responde en español.
`

// metaFields routes question keywords to stored metadata fields, checked in
// order so multi-word keys win over their substrings.
var metaFields = []struct {
	keyword string
	field   string
}{
	{"palabras clave", "tags"},
	{"autores", "author_real"},
	{"autor", "author_real"},
	{"escribió", "author_real"},
	{"año", "year"},
	{"publicación", "year"},
	{"publicó", "year"},
	{"fecha", "year"},
	{"doi", "doi"},
	{"issn", "issn"},
	{"orcid", "orcids"},
	{"correo", "emails"},
	{"email", "emails"},
	{"resumen", "abstract"},
	{"título", "title"},
	{"titulo", "title"},
}

// Retriever is the slice of retrieval the responder needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]*models.Chunk, error)
	RetrieveMetadata(ctx context.Context, field string) ([]string, error)
}

// Responder answers questions over the indexed corpus. Metadata questions
// are answered straight from the graph store without embeddings; everything
// else goes through retrieval and a strictly grounded prompt.
type Responder struct {
	retriever Retriever
	client    Client
	logger    *zap.Logger

	// mu guards memory; the HTTP server calls Answer from concurrent
	// request goroutines.
	mu     sync.Mutex
	memory []Message
}

// NewResponder builds a Responder. The client may be nil, in which case
// Answer returns the retrieved context without generation.
func NewResponder(retriever Retriever, client Client, logger *zap.Logger) (*Responder, error) {
	if retriever == nil {
		return nil, fmt.Errorf("responder requires a retriever")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{retriever: retriever, client: client, logger: logger}, nil
}

// Answer responds to a question. Metadata keywords short-circuit to a store
// lookup; otherwise chunks are retrieved, formatted as paged context, and
// passed to the chat model under the strict grounding rules.
func (r *Responder) Answer(ctx context.Context, question string) (string, error) {
	q := strings.ToLower(question)

	for _, mf := range metaFields {
		if !strings.Contains(q, mf.keyword) {
			continue
		}
		values, err := r.retriever.RetrieveMetadata(ctx, mf.field)
		if err != nil {
			r.logger.Warn("metadata lookup failed",
				zap.String("field", mf.field), zap.Error(err))
			return fmt.Sprintf("No encontrado en metadatos (%s).", mf.field), nil
		}
		if len(values) == 0 {
			return fmt.Sprintf("No encontrado en metadatos (%s).", mf.field), nil
		}
		return strings.Join(values, ", "), nil
	}

	chunks, err := r.retriever.Retrieve(ctx, question)
	if err != nil {
		// A broken backend must not turn into a hallucinated answer.
		r.logger.Warn("retrieval failed", zap.Error(err))
		return NotFoundAnswer, nil
	}
	if len(chunks) == 0 {
		return NotFoundAnswer, nil
	}

	context := formatContext(chunks)
	if r.client == nil {
		return context, nil
	}

	prompt := fmt.Sprintf(answerPromptTemplate, context, question)
	r.mu.Lock()
	messages := append(append([]Message{}, r.memory...), Message{Role: "user", Content: prompt})
	r.mu.Unlock()

	answer, err := r.client.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	r.remember(question, answer)
	return answer, nil
}

// Reset clears the conversation memory.
func (r *Responder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory = nil
}

func (r *Responder) remember(question, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory = append(r.memory,
		Message{Role: "user", Content: question},
		Message{Role: "assistant", Content: answer},
	)
	if len(r.memory) > maxMemoryTurns*2 {
		r.memory = r.memory[len(r.memory)-maxMemoryTurns*2:]
	}
}

// formatContext renders chunks as paged passages for the prompt.
func formatContext(chunks []*models.Chunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		fmt.Fprintf(&b, "[Página %d]\n%s\n\n", ch.PageNumber, ch.Text)
	}
	return b.String()
}
