package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

// ResponseStyle controls how long and how detailed an answer should be.
type ResponseStyle string

const (
	StyleBrief    ResponseStyle = "brief"
	StyleModerate ResponseStyle = "moderate"
	StyleDetailed ResponseStyle = "detailed"
)

var styleInstructions = map[ResponseStyle]string{
	StyleBrief:    "Answer in 2-3 complete sentences. Maximum 80 words. Always end with proper punctuation.",
	StyleModerate: "Answer in 3-5 complete sentences. Maximum 150 words. Always end with proper punctuation.",
	StyleDetailed: "Provide a comprehensive answer with complete explanations. Include all important information. Maximum 400 words. Always end with proper punctuation.",
}

// styleContextLimit caps how many retrieved passages feed the prompt.
var styleContextLimit = map[ResponseStyle]int{
	StyleBrief:    1,
	StyleModerate: 2,
}

// Patterns for meta-disclaimers the model likes to open with. Stripping them
// keeps replies conversational.
var disclaimerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:based on|according to|as per) (?:the\s+)?(?:context|documents?|information|provided information|available information)[:,]?\s*`),
	regexp.MustCompile(`(?i)^from (?:the\s+)?context i have[:,]?\s*`),
	regexp.MustCompile(`(?i)^according to my (?:knowledge|understanding)[:,]?\s*`),
}

// Generator wraps the LLM provider with prompt assembly and reply shaping.
type Generator struct {
	llm          ai.IGenerator
	temperature  float64
	timeout      time.Duration
	maxReplySize int
}

func NewGenerator(llm ai.IGenerator, temperature float64, timeout time.Duration, maxReplySize int) *Generator {
	return &Generator{
		llm:          llm,
		temperature:  temperature,
		timeout:      timeout,
		maxReplySize: maxReplySize,
	}
}

// Answer builds a grounded prompt from the retrieved passages and queries the
// model. With no passages it falls back to a prompt that says so, instead of
// letting the model invent citations. A deadline overrun maps to
// ErrGenerationTimeout.
func (g *Generator) Answer(ctx context.Context, question string, passages []model.ScoredPassage, style ResponseStyle) (string, error) {
	if _, ok := styleInstructions[style]; !ok {
		style = StyleModerate
	}
	prompt := g.buildPrompt(question, passages, style)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.llm.Generate(ctx, prompt, g.temperature)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: after %s", errs.ErrGenerationTimeout, g.timeout)
		}
		return "", fmt.Errorf("%w: %v", errs.ErrGenerationUnavailable, err)
	}
	logutil.GetLogger(ctx).Debug("generation finished",
		zap.Duration("cost", time.Since(start)),
		zap.Int("reply_chars", len(raw)),
		zap.String("style", string(style)))

	reply := Sanitize(strings.TrimSpace(raw))
	reply = TruncateAtSentence(reply, g.maxReplySize)
	if reply == "" {
		reply = "I couldn't find an answer to your question."
	}
	return reply, nil
}

func (g *Generator) buildPrompt(question string, passages []model.ScoredPassage, style ResponseStyle) string {
	if len(passages) == 0 {
		return fmt.Sprintf(`You are an assistant answering questions about a document collection.

The collection contains nothing relevant to this question. Say so briefly, and suggest the user rephrase or ask about a topic the collection covers. Do NOT make up an answer.

User Question: %s

Direct Answer:`, question)
	}

	if limit, ok := styleContextLimit[style]; ok && len(passages) > limit {
		passages = passages[:limit]
	}

	var ctxBuf strings.Builder
	for i, p := range passages {
		if i > 0 {
			ctxBuf.WriteString("\n\n")
		}
		fmt.Fprintf(&ctxBuf, "[Source %d: %s]\n%s", i+1, p.SourceDocument, p.Text)
	}

	return fmt.Sprintf(`You are an assistant answering questions about a document collection.

RULES:
1. %s
2. Answer only from the information below. Name the source document when it helps.
3. Answer directly and naturally. Do NOT mention "context", "documents" or "information provided".
4. If the information below does not answer the question, say "I don't have that specific information."
5. NEVER make up facts, numbers or percentages.

Information:
%s

User Question: %s

Direct Answer:`, styleInstructions[style], ctxBuf.String(), question)
}

// Sanitize strips context/document disclaimers from the start of the text and
// from the start of each sentence.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	stripLeading := func(s string) string {
		for {
			trimmed := strings.TrimLeft(s, " \t")
			next := trimmed
			for _, pat := range disclaimerPatterns {
				next = pat.ReplaceAllString(next, "")
			}
			if next == trimmed {
				return next
			}
			s = next
		}
	}

	cleaned := stripLeading(text)
	sentenceStart := regexp.MustCompile(`([.!?]\s+)([^.!?]{0,200})`)
	cleaned = sentenceStart.ReplaceAllStringFunc(cleaned, func(m string) string {
		sub := sentenceStart.FindStringSubmatch(m)
		return sub[1] + stripLeading(sub[2])
	})
	return cleaned
}

// TruncateAtSentence cuts text down to at most maxChars without breaking a
// sentence. If not even one sentence fits, the first sentence is kept whole.
func TruncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return ensureTerminated(text)
	}

	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && len(strings.TrimSpace(current.String())) > 10 {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	var out strings.Builder
	for _, s := range sentences {
		if out.Len()+len(s)+1 > maxChars {
			break
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(s)
	}
	if out.Len() == 0 {
		if len(sentences) > 0 {
			return sentences[0]
		}
		return ensureTerminated(strings.TrimRight(text[:maxChars], ",; "))
	}
	return out.String()
}

func ensureTerminated(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	last := text[len(text)-1]
	if last == '.' || last == '!' || last == '?' {
		return text
	}
	if i := strings.LastIndexAny(text, ".!?"); i > 0 {
		return text[:i+1]
	}
	return strings.TrimRight(text, ",; ") + "."
}
