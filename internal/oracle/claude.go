package oracle

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Claude calls the model by spawning short-lived claude CLI sessions,
// one focused prompt per call.
type Claude struct {
	command string
	timeout time.Duration
	log     *logrus.Logger

	// For testing: overrides the CLI invocation.
	run func(ctx context.Context, prompt string) (string, error)
}

// ClaudeOpts holds parameters for creating a Claude oracle.
type ClaudeOpts struct {
	Command string        // CLI binary; default "claude"
	Timeout time.Duration // per-call deadline; default 30s
	Logger  *logrus.Logger
}

// NewClaude creates a CLI-backed oracle.
func NewClaude(opts ClaudeOpts) *Claude {
	command := opts.Command
	if command == "" {
		command = "claude"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	c := &Claude{command: command, timeout: timeout, log: log}
	c.run = c.runCLI
	return c
}

func (c *Claude) runCLI(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command, "-p", prompt)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("oracle: %s: %w", c.command, err)
	}
	return string(output), nil
}

// ClassifyIntent implements IntentClassifier.
func (c *Claude) ClassifyIntent(ctx context.Context, message string) (string, error) {
	prompt := fmt.Sprintf(`Classify the customer's intent into ONE of these categories:

- faq: General questions about policies, products, services, shipping times, return policies, how things work
- order_inquiry: Questions about a SPECIFIC order (mentions order number, tracking number, "my order", "my package")
- account: Account-related issues (login, profile, password, settings, "my account")
- complaint: Expressing dissatisfaction, problems, wanting refunds, frustrated language
- handoff_request: Explicitly asking for a human agent, representative, or real person
- general: Anything else or unclear

IMPORTANT:
- "How long does shipping take?" = faq (general policy question)
- "Where is my order?" or "Track order #123" = order_inquiry (specific order)

Customer message: "%s"

Respond with just the category name, nothing else.`, message)

	output, err := c.run(ctx, prompt)
	if err != nil {
		return "", err
	}

	intent := strings.ToLower(strings.TrimSpace(output))
	if !validIntent(intent) {
		c.log.WithField("raw", intent).Warn("unrecognized intent label")
		intent = "general"
	}
	return intent, nil
}

// AnalyzeSentiment implements SentimentAnalyzer. Unparseable fields keep
// their neutral defaults rather than failing the turn.
func (c *Claude) AnalyzeSentiment(ctx context.Context, transcript string) (Sentiment, error) {
	prompt := fmt.Sprintf(`Analyze the customer's emotional state in this conversation.

Conversation:
%s

Provide your analysis in this exact format:
SENTIMENT: [number from -1.0 to 1.0, where -1 is very negative, 0 is neutral, 1 is very positive]
FRUSTRATION: [low, medium, or high]`, transcript)

	output, err := c.run(ctx, prompt)
	if err != nil {
		return Sentiment{Frustration: "low"}, err
	}
	return parseSentiment(output), nil
}

func parseSentiment(output string) Sentiment {
	s := Sentiment{Score: 0.0, Frustration: "low"}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SENTIMENT:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "SENTIMENT:"))
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				if v > 1.0 {
					v = 1.0
				}
				if v < -1.0 {
					v = -1.0
				}
				s.Score = v
			}
		case strings.HasPrefix(line, "FRUSTRATION:"):
			level := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "FRUSTRATION:")))
			if level == "low" || level == "medium" || level == "high" {
				s.Frustration = level
			}
		}
	}
	return s
}

// GenerateResponse implements ResponseGenerator.
func (c *Claude) GenerateResponse(ctx context.Context, req ResponseRequest) (string, error) {
	info := req.Context
	if info == "" {
		info = "No specific context available."
	}

	prompt := fmt.Sprintf(`You are a friendly and helpful customer service assistant for TechFlow Solutions.

Your personality:
- Warm, professional, and empathetic
- Clear and concise in explanations
- Always helpful and solution-oriented
- Acknowledge customer feelings when appropriate

Guidelines:
- If you have specific information from the context, use it
- If you don't have enough information, ask clarifying questions
- Never make up information about orders, accounts, or policies
- For complaints, acknowledge feelings first, then offer solutions
- Keep responses conversational, not robotic

Intent: %s
Handler: %s

Context/Information gathered:
%s

Recent conversation:
%s

Generate a helpful response to the customer's last message. Be natural and conversational.`,
		req.Intent, req.Handler, info, req.History)

	output, err := c.run(ctx, prompt)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(output)
	if reply == "" {
		return "", fmt.Errorf("oracle: empty response from model")
	}
	return reply, nil
}
