package coach_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go/v3/option"
	"github.com/steviebd/swole-tracker/internal/coach"
	"github.com/steviebd/swole-tracker/internal/testhelpers"
	"github.com/steviebd/swole-tracker/internal/workout"
)

func testBriefing() coach.Briefing {
	return coach.Briefing{
		Readiness: &workout.ReadinessReport{
			Readiness: workout.Readiness{
				Rho:        0.72,
				Flags:      []string{workout.FlagGoodRecovery},
				Components: workout.ReadinessComponents{Recovery: 0.85, Sleep: 0.7, HRVRatio: 1, RHRRatio: 1},
			},
			Delta:           1.04,
			ExperienceLevel: workout.ExperienceIntermediate,
		},
		Suggestions: []workout.Suggestion{
			{
				ExerciseName:    "Squat",
				Type:            workout.SuggestionWeight,
				Current:         100,
				Suggested:       102.5,
				Weight:          0,
				Rationale:       "good readiness",
				PlateauDetected: false,
			},
			{
				ExerciseName:    "Bench Press",
				Type:            workout.SuggestionReps,
				Current:         8,
				Suggested:       9,
				Weight:          80,
				Rationale:       "good readiness, add one rep at the same weight",
				PlateauDetected: true,
			},
		},
		Forecasts: []workout.PRForecast{{ //nolint:exhaustruct // only the rendered fields matter.
			ExerciseName:       "Squat",
			CurrentPR:          107.5,
			ForecastedWeight:   110,
			EstimatedWeeksLow:  1,
			EstimatedWeeksHigh: 2,
			ConfidencePercent:  100,
		}},
		Notifications: []workout.Notification{{ //nolint:exhaustruct // only the rendered fields matter.
			Type:          workout.NotificationMilestoneAchieved,
			ExerciseName:  "Squat",
			MilestoneType: workout.MilestoneVolume,
			AchievedValue: 5200,
			TargetValue:   5000,
		}},
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		briefing coach.Briefing
		want     string
	}{
		{
			name:     "empty",
			briefing: coach.Briefing{}, //nolint:exhaustruct // nothing to report.
			want:     "## Readiness\n\nNo readiness data for today.\n",
		},
		{
			name:     "full",
			briefing: testBriefing(),
			want: "## Readiness\n\n" +
				"Readiness 0.72, load multiplier 1.04 (intermediate).\n\n" +
				"Flags: good_recovery.\n" +
				"\n## Targets\n\n" +
				"- **Squat**: 100 to 102.5 kg (good readiness)\n" +
				"- **Bench Press**: 8 to 9 reps at 80 kg (good readiness, add one rep at the same weight), " +
				"plateau detected\n" +
				"\n## PR forecasts\n\n" +
				"- **Squat**: 107.5 kg now, 110 kg in 1 to 2 weeks (100% confidence)\n" +
				"\n## Milestones\n\n" +
				"- **Squat**: volume target 5000 reached with 5200\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coach.Summarize(tt.briefing)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeOpenAI answers chat completions with content or fails with status when it is not 200.
func fakeOpenAI(t *testing.T, status int, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"fake failure","type":"server_error","code":"fake"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1760400000,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCoach_Advise(t *testing.T) {
	briefing := testBriefing()
	summary := coach.Summarize(briefing)

	tests := []struct {
		name       string
		apiKey     string
		status     int
		content    string
		want       coach.Advice
		wantCalled bool
	}{
		{
			name:       "no api key",
			apiKey:     "",
			status:     http.StatusOK,
			content:    "unused",
			want:       coach.Advice{Markdown: summary, Source: coach.SourceSummary},
			wantCalled: false,
		},
		{
			name:       "model advice",
			apiKey:     "test-key",
			status:     http.StatusOK,
			content:    "Train hard today.\n\n- Squat 102.5 kg",
			want:       coach.Advice{Markdown: "Train hard today.\n\n- Squat 102.5 kg", Source: coach.SourceModel},
			wantCalled: true,
		},
		{
			name:       "empty completion",
			apiKey:     "test-key",
			status:     http.StatusOK,
			content:    "  ",
			want:       coach.Advice{Markdown: summary, Source: coach.SourceSummary},
			wantCalled: true,
		},
		{
			name:       "server error",
			apiKey:     "test-key",
			status:     http.StatusInternalServerError,
			content:    "",
			want:       coach.Advice{Markdown: summary, Source: coach.SourceSummary},
			wantCalled: true,
		},
		{
			name:       "rate limited",
			apiKey:     "test-key",
			status:     http.StatusTooManyRequests,
			content:    "",
			want:       coach.Advice{Markdown: summary, Source: coach.SourceSummary},
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req chatRequest
			srv := fakeOpenAI(t, tt.status, tt.content, &req)
			logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
			c := coach.New(tt.apiKey, logger, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))

			got := c.Advise(t.Context(), briefing)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Advise() mismatch (-want +got):\n%s", diff)
			}

			called := len(req.Messages) > 0
			if called != tt.wantCalled {
				t.Fatalf("model called = %v, want %v", called, tt.wantCalled)
			}
			if !called {
				return
			}
			if req.Model != "gpt-4o" {
				t.Errorf("model = %q, want gpt-4o", req.Model)
			}
			last := req.Messages[len(req.Messages)-1]
			if last.Role != "user" || last.Content != summary {
				t.Errorf("last message = %s %q, want the user summary", last.Role, last.Content)
			}
		})
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := coach.RenderHTML(coach.Summarize(testBriefing()) + "\n<script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("RenderHTML() unexpected error = %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}

	var headings []string
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		headings = append(headings, s.Text())
	})
	if diff := cmp.Diff([]string{"Readiness", "Targets", "PR forecasts", "Milestones"}, headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	if got := doc.Find("li strong").First().Text(); got != "Squat" {
		t.Errorf("first exercise = %q, want Squat", got)
	}
	if doc.Find("script").Length() != 0 {
		t.Error("raw script tag was rendered")
	}
}
