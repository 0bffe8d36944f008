package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/model"
	"github.com/docqa/docqa/internal/pkg/errs"
)

type fakeLLM struct {
	reply      string
	err        error
	delay      time.Duration
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	f.lastPrompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func scored(id, text, source string, score float32) model.ScoredPassage {
	return model.ScoredPassage{
		Passage: model.Passage{ID: id, Text: text, SourceDocument: source},
		Score:   score,
	}
}

func TestAnswerGroundsPromptInPassages(t *testing.T) {
	llm := &fakeLLM{reply: "Vitiligo causes patches of skin to lose pigment."}
	g := NewGenerator(llm, 0.7, time.Minute, 4096)

	passages := []model.ScoredPassage{
		scored("p1", "Vitiligo is a condition where skin loses pigment.", "vitiligo.pdf", 0.9),
		scored("p2", "Treatment options include topical creams.", "vitiligo.pdf", 0.8),
	}
	answer, err := g.Answer(context.Background(), "what is vitiligo", passages, StyleModerate)
	require.NoError(t, err)
	require.NotEmpty(t, answer)
	require.Contains(t, llm.lastPrompt, "vitiligo.pdf")
	require.Contains(t, llm.lastPrompt, "Vitiligo is a condition where skin loses pigment.")
	require.Contains(t, llm.lastPrompt, "what is vitiligo")
}

func TestAnswerFallbackPromptOnEmptyContext(t *testing.T) {
	llm := &fakeLLM{reply: "I don't have information about that topic."}
	g := NewGenerator(llm, 0.7, time.Minute, 4096)

	_, err := g.Answer(context.Background(), "unrelated question", nil, StyleModerate)
	require.NoError(t, err)
	require.Contains(t, llm.lastPrompt, "nothing relevant")
	require.NotContains(t, llm.lastPrompt, "[Source")
}

func TestAnswerTimeout(t *testing.T) {
	llm := &fakeLLM{reply: "too late", delay: time.Second}
	g := NewGenerator(llm, 0.7, 20*time.Millisecond, 4096)

	start := time.Now()
	_, err := g.Answer(context.Background(), "slow question", nil, StyleModerate)
	require.True(t, errors.Is(err, errs.ErrGenerationTimeout))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAnswerUnavailable(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	g := NewGenerator(llm, 0.7, time.Minute, 4096)

	_, err := g.Answer(context.Background(), "question", nil, StyleModerate)
	require.True(t, errors.Is(err, errs.ErrGenerationUnavailable))
}

func TestAnswerBriefStyleLimitsContext(t *testing.T) {
	llm := &fakeLLM{reply: "Short answer."}
	g := NewGenerator(llm, 0.7, time.Minute, 4096)

	passages := []model.ScoredPassage{
		scored("p1", "first passage", "a.pdf", 0.9),
		scored("p2", "second passage", "a.pdf", 0.8),
	}
	_, err := g.Answer(context.Background(), "tell me briefly", passages, StyleBrief)
	require.NoError(t, err)
	require.Contains(t, llm.lastPrompt, "first passage")
	require.NotContains(t, llm.lastPrompt, "second passage")
}

func TestSanitizeStripsDisclaimers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Based on the context, vitiligo is a skin condition.", "vitiligo is a skin condition."},
		{"According to the documents, it affects pigment.", "it affects pigment."},
		{"Vitiligo is common. Based on the information, it is not contagious.", "Vitiligo is common. it is not contagious."},
		{"No disclaimers here.", "No disclaimers here."},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Sanitize(tc.in), "input: %q", tc.in)
	}
}

func TestTruncateAtSentence(t *testing.T) {
	text := "This is the first sentence here. This is the second sentence here. This is the third sentence here."
	out := TruncateAtSentence(text, 70)
	require.LessOrEqual(t, len(out), 70)
	require.True(t, strings.HasSuffix(out, "."))
	require.Contains(t, out, "first sentence")
	require.NotContains(t, out, "third sentence")
}

func TestTruncateKeepsFirstSentenceWhenNothingFits(t *testing.T) {
	text := "This single sentence is considerably longer than the limit allows for."
	out := TruncateAtSentence(text, 10)
	require.Equal(t, text, out)
}

func TestTruncateNoOpUnderLimit(t *testing.T) {
	require.Equal(t, "Short reply.", TruncateAtSentence("Short reply.", 100))
}
