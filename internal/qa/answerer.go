// Package qa answers free-form questions over the indexed documents with a
// heuristic confidence score.
package qa

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/memory"
	"github.com/ledgerline/finsight/internal/model"
	"github.com/ledgerline/finsight/internal/rag"
)

// NoInformationAnswer is returned when retrieval finds nothing.
const NoInformationAnswer = "I cannot find information in the provided documents to answer this question."

// Heuristic confidence constants.
const (
	baselineConfidence = 0.5
	hedgingPenalty     = 0.2
	substantiveBonus   = 0.3
	richContextBonus   = 0.2
	substantiveMinLen  = 100
	richContextMinDocs = 3
)

// hedgingPhrases mark uncertainty in an answer. Only the first match counts.
var hedgingPhrases = []string{
	"je ne suis pas sûr",
	"il semble que",
	"peut-être",
	"probablement",
	"information non disponible",
	"pas d'information",
	"ne trouve pas",
	"i am not sure",
	"it seems that",
	"possibly",
	"probably",
	"no information available",
	"cannot find",
}

// noInformationMarkers flag an answer as a non-answer.
var noInformationMarkers = []string{
	"non disponible",
	"ne trouve pas",
	"not available",
	"no information",
	"cannot find",
}

// Answerer runs the retrieval → generation → confidence pipeline for one
// question, consulting correction memory first.
type Answerer struct {
	retriever           rag.Retriever
	generator           rag.Generator
	mem                 *memory.Memory
	topK                int
	confidenceThreshold float64
}

// New creates an Answerer. mem may be nil to disable memory recall.
func New(retriever rag.Retriever, generator rag.Generator, mem *memory.Memory, topK int, confidenceThreshold float64) *Answerer {
	if topK <= 0 {
		topK = 5
	}
	return &Answerer{
		retriever:           retriever,
		generator:           generator,
		mem:                 mem,
		topK:                topK,
		confidenceThreshold: confidenceThreshold,
	}
}

// Answer responds to a question. A confidently recalled correction is
// authoritative and short-circuits generation; otherwise the answer is
// generated from retrieved context and scored heuristically. The returned
// shape is always complete so callers can render it.
func (a *Answerer) Answer(ctx context.Context, question string) (*model.Answer, error) {
	if a.mem != nil {
		recalled, err := a.mem.RecallForQuestion(ctx, question)
		if err != nil {
			zap.L().Warn("question recall failed", zap.Error(err))
		} else if recalled != nil && recalled.Confidence > 0.8 {
			zap.L().Info("question answered from memory",
				zap.String("question", question),
				zap.Float64("confidence", recalled.Confidence))
			recalled.NeedsValidation = false
			return recalled, nil
		}
	}

	passages, err := a.retriever.Search(ctx, question, a.topK)
	if err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		return &model.Answer{
			Question:        question,
			Text:            NoInformationAnswer,
			Confidence:      0,
			Sources:         []string{},
			NeedsValidation: true,
		}, nil
	}

	text, err := a.generator.Complete(ctx, buildQAPrompt(question, passages))
	if err != nil {
		return nil, err
	}

	confidence := AssessConfidence(text, len(passages))

	sources := make([]string, 0, len(passages))
	seen := map[string]bool{}
	for _, p := range passages {
		if !seen[p.SourceID] {
			seen[p.SourceID] = true
			sources = append(sources, p.SourceID)
		}
	}

	return &model.Answer{
		Question:        question,
		Text:            text,
		Confidence:      confidence,
		Sources:         sources,
		ContextChunks:   len(passages),
		NeedsValidation: confidence < a.confidenceThreshold,
	}, nil
}

// AnswerBatch answers questions sequentially.
func (a *Answerer) AnswerBatch(ctx context.Context, questions []string) ([]*model.Answer, error) {
	answers := make([]*model.Answer, 0, len(questions))
	for _, q := range questions {
		ans, err := a.Answer(ctx, q)
		if err != nil {
			return answers, err
		}
		answers = append(answers, ans)
	}
	return answers, nil
}

// AssessConfidence scores an answer heuristically: 0.5 baseline, a single
// hedging penalty, a bonus for substantive answers and for rich retrieval
// context, clamped to [0,1].
func AssessConfidence(answer string, contextDocs int) float64 {
	confidence := baselineConfidence
	lower := strings.ToLower(answer)

	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			confidence -= hedgingPenalty
			break
		}
	}

	if len(answer) > substantiveMinLen && !containsAny(lower, noInformationMarkers) {
		confidence += substantiveBonus
	}

	if contextDocs >= richContextMinDocs {
		confidence += richContextBonus
	}

	return math.Max(0, math.Min(1, math.Round(confidence*100)/100))
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func buildQAPrompt(question string, passages []model.Passage) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the context below. If the context does not contain the answer, say that the information is not available.\n\nCONTEXT:\n")
	for _, p := range passages {
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "QUESTION: %s\n\nANSWER:", question)
	return sb.String()
}
