// Package coach turns the analytics of a training day into advice.
//
// The deterministic summary is always available. When an OpenAI API key is configured the summary is handed to the
// model as context and its answer is used instead.
package coach

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/steviebd/swole-tracker/internal/errors"
	"github.com/steviebd/swole-tracker/internal/workout"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const systemPrompt = `You are a strength coach inside a training log. You receive a summary of today's readiness, ` +
	`the suggested targets, PR forecasts and freshly achieved milestones. Answer in short markdown: one paragraph on ` +
	`how hard to train today, then a bullet list with one concrete instruction per exercise. Never invent numbers ` +
	`that are not in the summary.`

// Briefing is the analytics the advice is based on. Every part is optional.
type Briefing struct {
	Readiness     *workout.ReadinessReport `json:"readiness,omitempty"`
	Suggestions   []workout.Suggestion     `json:"suggestions"`
	Forecasts     []workout.PRForecast     `json:"forecasts"`
	Notifications []workout.Notification   `json:"notifications"`
}

// Source tells where the advice came from.
type Source string

const (
	SourceModel   Source = "model"
	SourceSummary Source = "summary"
)

// Advice is markdown addressed to the athlete.
type Advice struct {
	Markdown string `json:"markdown"`
	Source   Source `json:"source"`
}

// Coach produces advice for a briefing.
type Coach struct {
	client *openai.Client
	logger *slog.Logger
}

// New creates a coach. An empty apiKey disables the model and every advice is the deterministic summary.
func New(apiKey string, logger *slog.Logger, opts ...option.RequestOption) *Coach {
	c := &Coach{
		client: nil,
		logger: logger,
	}
	if apiKey == "" {
		return c
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	c.client = &client
	return c
}

// Enabled reports whether advice is requested from the model.
func (c *Coach) Enabled() bool {
	return c.client != nil
}

// Advise returns advice for the briefing. Failures of the model degrade to the deterministic summary.
func (c *Coach) Advise(ctx context.Context, b Briefing) Advice {
	summary := Summarize(b)
	if c.client == nil {
		return Advice{Markdown: summary, Source: SourceSummary}
	}

	content, err := c.complete(ctx, summary)
	if err != nil {
		errorType, retryable := classify(err)
		c.logger.LogAttrs(ctx, slog.LevelWarn, "coach advice failed, using summary",
			slog.String("error_type", string(errorType)),
			slog.Bool("retryable", retryable),
			errors.SlogError(err))
		return Advice{Markdown: summary, Source: SourceSummary}
	}
	return Advice{Markdown: content, Source: SourceModel}
}

func (c *Coach) complete(ctx context.Context, summary string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need to set a few fields.
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(summary),
		},
		Model: openai.ChatModelGPT4o,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "received coach advice",
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens))

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}

// Summarize renders the briefing as markdown. The output only depends on b.
func Summarize(b Briefing) string {
	var sb strings.Builder

	sb.WriteString("## Readiness\n\n")
	if b.Readiness == nil {
		sb.WriteString("No readiness data for today.\n")
	} else {
		fmt.Fprintf(&sb, "Readiness %.2f, load multiplier %.2f (%s).\n",
			b.Readiness.Rho, b.Readiness.Delta, b.Readiness.ExperienceLevel)
		if len(b.Readiness.Flags) > 0 {
			fmt.Fprintf(&sb, "\nFlags: %s.\n", strings.Join(b.Readiness.Flags, ", "))
		}
	}

	if len(b.Suggestions) > 0 {
		sb.WriteString("\n## Targets\n\n")
		for _, s := range b.Suggestions {
			switch s.Type {
			case workout.SuggestionReps:
				fmt.Fprintf(&sb, "- **%s**: %g to %g reps at %g kg (%s)", s.ExerciseName, s.Current, s.Suggested,
					s.Weight, s.Rationale)
			case workout.SuggestionWeight:
				fmt.Fprintf(&sb, "- **%s**: %g to %g kg (%s)", s.ExerciseName, s.Current, s.Suggested, s.Rationale)
			}
			if s.PlateauDetected {
				sb.WriteString(", plateau detected")
			}
			sb.WriteString("\n")
		}
	}

	if len(b.Forecasts) > 0 {
		sb.WriteString("\n## PR forecasts\n\n")
		for _, f := range b.Forecasts {
			fmt.Fprintf(&sb, "- **%s**: %g kg now, %g kg in %d to %d weeks (%d%% confidence)\n",
				f.ExerciseName, f.CurrentPR, f.ForecastedWeight, f.EstimatedWeeksLow, f.EstimatedWeeksHigh,
				f.ConfidencePercent)
		}
	}

	if len(b.Notifications) > 0 {
		sb.WriteString("\n## Milestones\n\n")
		for _, n := range b.Notifications {
			fmt.Fprintf(&sb, "- **%s**: %s target %g reached with %g\n",
				n.ExerciseName, strings.ReplaceAll(string(n.MilestoneType), "_", " "), n.TargetValue, n.AchievedValue)
		}
	}

	return sb.String()
}

// Raw HTML in the markdown is escaped because WithUnsafe is not set.
//
//nolint:gochecknoglobals // goldmark instances are safe for concurrent use.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderHTML converts advice markdown to an HTML fragment.
func RenderHTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", errors.Wrap(err, "convert markdown")
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML.
}
