package service

import (
	"math/rand"
	"regexp"
	"strings"
)

// Intent labels produced by the classifier.
const (
	IntentGreeting    = "greeting"
	IntentFarewell    = "farewell"
	IntentHelpRequest = "help"
	IntentQuestion    = "question"
)

var (
	greetingRe = regexp.MustCompile(`(?i)^\s*(hi+|hy|hello|helo|hola|hai|hey|greetings?|good\s*(morning|afternoon|evening|day))[\s!?.]*$`)
	farewellRe = regexp.MustCompile(`(?i)^\s*(bye|goodbye|see\s*you|thanks?|thank\s*you|cheers)[\s!?.]*$`)
	helpRe     = regexp.MustCompile(`(?i)\b(help|what can you do|how do(es)? (this|it) work)\b`)
	briefRe    = regexp.MustCompile(`(?i)\b(brief(ly)?|summar(y|ize)|short|quick|tldr)\b`)
	detailRe   = regexp.MustCompile(`(?i)\b(detail(s|ed)?|explain (fully|more)|elaborate|everything about|comprehensive)\b`)
)

var greetingReplies = []string{
	"Hello! I'm here to help answer questions about the documents I know. What would you like to know?",
	"Hi there! Ask me anything and I'll look it up for you.",
	"Hello! Feel free to ask me a question whenever you're ready.",
}

var farewellReplies = []string{
	"Goodbye! Take care!",
	"Thanks for chatting. Have a great day!",
	"Bye! Feel free to come back if you have more questions.",
}

const helpReply = "I can answer questions from my document collection. Just ask in plain language, for example what something is, how it works, or what the options are. Add \"briefly\" or \"in detail\" to control the length of the answer."

// ConvoResult is the classifier's decision for one incoming message.
type ConvoResult struct {
	Intent     string
	Style      ResponseStyle
	QuickReply string
	UseRAG     bool
}

// Classifier maps small-talk messages to canned replies and picks a response
// style for the rest, so greetings never hit the retrieval pipeline.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(message string) ConvoResult {
	msg := strings.TrimSpace(message)
	switch {
	case greetingRe.MatchString(msg):
		return ConvoResult{Intent: IntentGreeting, QuickReply: pick(greetingReplies)}
	case farewellRe.MatchString(msg):
		return ConvoResult{Intent: IntentFarewell, QuickReply: pick(farewellReplies)}
	case helpRe.MatchString(msg) && len(strings.Fields(msg)) <= 8:
		return ConvoResult{Intent: IntentHelpRequest, QuickReply: helpReply}
	}

	style := StyleModerate
	if briefRe.MatchString(msg) {
		style = StyleBrief
	} else if detailRe.MatchString(msg) {
		style = StyleDetailed
	}
	return ConvoResult{Intent: IntentQuestion, Style: style, UseRAG: true}
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
