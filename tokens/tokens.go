// Package tokens estimates token usage for requests and responses.
//
// The figures are heuristic: they size prompts and completions for
// bookkeeping, they are not billing-accurate.

package tokens

import (
	"strings"
	"unicode/utf8"
)

// chatOverhead is added once per conversation for role and framing tokens.
const chatOverhead = 8

// charsPerToken is the average number of characters one token covers.
const charsPerToken = 4

// Usage holds estimated token counts for one call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// NewUsage builds a Usage whose total is the sum of input and output.
// Negative counts are clamped to zero.
func NewUsage(input, output int) Usage {
	input = max(input, 0)
	output = max(output, 0)
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}

// Counter turns text into a token count.
type Counter interface {
	Count(text string) int
}

// Heuristic counts roughly one token per four characters.
// Every text, including the empty string, is at least one token.
type Heuristic struct{}

// Count implements Counter.
func (Heuristic) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return max(1, (n+charsPerToken-1)/charsPerToken)
}

// Estimator computes usage with a pluggable Counter.
// The zero value uses Heuristic.
type Estimator struct {
	Counter Counter
}

func (e Estimator) counter() Counter {
	if e.Counter == nil {
		return Heuristic{}
	}
	return e.Counter
}

// Text estimates the tokens in a single string.
func (e Estimator) Text(text string) int {
	return e.counter().Count(text)
}

// Chat estimates the prompt tokens of a conversation: the sum over all
// message contents plus a fixed framing overhead.
func (e Estimator) Chat(contents []string) int {
	c := e.counter()
	total := chatOverhead
	for _, content := range contents {
		total += c.Count(content)
	}
	return total
}

// Usage estimates usage for a raw input and output text.
func (e Estimator) Usage(input, output string) Usage {
	return NewUsage(e.Text(input), e.Text(output))
}

// JoinedUsage estimates usage for several inputs joined by newlines.
func (e Estimator) JoinedUsage(inputs []string, output string) Usage {
	return e.Usage(strings.Join(inputs, "\n"), output)
}

// ChatUsage estimates usage for a conversation and its reply.
func (e Estimator) ChatUsage(contents []string, output string) Usage {
	return NewUsage(e.Chat(contents), e.Text(output))
}

var defaultEstimator Estimator

// EstimateText estimates the tokens in text with the Heuristic counter.
func EstimateText(text string) int {
	return defaultEstimator.Text(text)
}

// EstimateChat estimates the prompt tokens of a conversation.
func EstimateChat(contents []string) int {
	return defaultEstimator.Chat(contents)
}

// MakeUsage estimates usage for an input and output text.
func MakeUsage(input, output string) Usage {
	return defaultEstimator.Usage(input, output)
}

// MakeChatUsage estimates usage for a conversation and its reply.
func MakeChatUsage(contents []string, output string) Usage {
	return defaultEstimator.ChatUsage(contents, output)
}
