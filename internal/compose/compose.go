// Package compose implements the Context Composer (C9): assembling the
// final prompt sent to the Brain Client from persona, personalization,
// retrieved material excerpts, bounded chat history, and the user's
// message, trimming deterministically to a character budget (§4.9).
package compose

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/retrieval"
)

// Config controls history depth, the prompt's character budget, and the
// minimum query length that triggers retrieval (§6.3).
type Config struct {
	HistoryTurns     int    `conf:"history_turns" yaml:"history_turns" json:"history_turns"`
	PromptCharBudget int    `conf:"prompt_char_budget" yaml:"prompt_char_budget" json:"prompt_char_budget"`
	MinQueryLen      int    `conf:"min_query_len" yaml:"min_query_len" json:"min_query_len"`
	Persona          string `conf:"persona" yaml:"persona" json:"persona"`
}

// HistoryTurn is one prior (role, content) pair, oldest first.
type HistoryTurn struct {
	Role    string
	Content string
}

// Personalization is the academic profile and preference summary read from
// the personalization cache (§6.4), already rendered to short text blocks by
// the caller.
type Personalization struct {
	AcademicProfile string
	Preferences     string
}

// Request bundles everything the composer needs for one chat turn.
type Request struct {
	CourseID        string
	UserMessage     string
	History         []HistoryTurn
	Personalization Personalization
	// Excerpts is already retrieval-scored and ordered (best first); absent
	// or empty when retrieval didn't run (§4.9 gating rule).
	Excerpts []retrieval.Result
}

// ShouldRetrieve reports whether query is long enough and a course scope is
// present to justify running Vector Search at all (§4.8, §4.9).
func (c Config) ShouldRetrieve(courseID, query string) bool {
	return strings.TrimSpace(courseID) != "" && len(strings.TrimSpace(query)) >= c.MinQueryLen
}

// Compose assembles the final prompt. Blocks (persona, personalization,
// materials, history, message) are separated by a blank line and omitted
// entirely when empty, never leaving a dangling separator (§4.9).
//
// When the composed text exceeds PromptCharBudget, it trims in this fixed
// order: (a) drop the oldest history turns one at a time, (b) drop the
// lowest-scoring excerpts one at a time, (c) truncate the lowest-scoring
// remaining excerpt, (d) if the user message alone still exceeds the
// budget, fail with PromptTooLarge rather than truncate it silently.
func Compose(cfg Config, req Request) (string, error) {
	userBlock := strings.TrimSpace(req.UserMessage)
	if len(userBlock) > cfg.PromptCharBudget {
		return "", errs.PromptTooLarge("the message is too long for the model's context budget")
	}

	history := append([]HistoryTurn(nil), req.History...)
	excerpts := append([]retrieval.Result(nil), req.Excerpts...)

	for {
		prompt := render(cfg, req, history, excerpts)
		if len(prompt) <= cfg.PromptCharBudget {
			return prompt, nil
		}

		switch {
		case len(history) > 0:
			history = history[1:]
		case len(excerpts) > 1:
			excerpts = excerpts[:len(excerpts)-1]
		case len(excerpts) == 1:
			trimmed := excerptBudget(cfg, req, history)
			if len(excerpts[0].Excerpt) <= trimmed {
				excerpts = nil
				continue
			}

			excerpts[0].Excerpt = excerpts[0].Excerpt[:trimmed]
		default:
			return "", errs.PromptTooLarge("the composed prompt exceeds the context budget even with no history or retrieved material")
		}
	}
}

// excerptBudget estimates how much room is left for the last remaining
// excerpt once persona/personalization/history/message are accounted for,
// so truncation (step c) converges instead of looping indefinitely.
func excerptBudget(cfg Config, req Request, history []HistoryTurn) int {
	without := render(cfg, req, history, nil)
	remaining := cfg.PromptCharBudget - len(without)

	if remaining < 0 {
		remaining = 0
	}

	return remaining
}

func render(cfg Config, req Request, history []HistoryTurn, excerpts []retrieval.Result) string {
	blocks := make([]string, 0, 5)

	if p := strings.TrimSpace(cfg.Persona); p != "" {
		blocks = append(blocks, p)
	}

	if pb := personalizationBlock(req.Personalization); pb != "" {
		blocks = append(blocks, pb)
	}

	if mb := materialsBlock(excerpts); mb != "" {
		blocks = append(blocks, mb)
	}

	if hb := historyBlock(history); hb != "" {
		blocks = append(blocks, hb)
	}

	blocks = append(blocks, "User: "+strings.TrimSpace(req.UserMessage))

	return strings.Join(blocks, "\n\n")
}

func personalizationBlock(p Personalization) string {
	lines := lo.Filter([]string{p.AcademicProfile, p.Preferences}, func(s string, _ int) bool {
		return strings.TrimSpace(s) != ""
	})

	if len(lines) == 0 {
		return ""
	}

	return "Student context:\n" + strings.Join(lines, "\n")
}

func materialsBlock(excerpts []retrieval.Result) string {
	if len(excerpts) == 0 {
		return ""
	}

	lines := lo.Map(excerpts, func(r retrieval.Result, i int) string {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = r.MaterialID
		}

		return fmt.Sprintf("[%s, similarity %.2f] %s", name, r.Score, strings.TrimSpace(r.Excerpt))
	})

	return "Relevant course material:\n" + strings.Join(lines, "\n---\n")
}

func historyBlock(history []HistoryTurn) string {
	if len(history) == 0 {
		return ""
	}

	lines := lo.Map(history, func(t HistoryTurn, _ int) string {
		return t.Role + ": " + strings.TrimSpace(t.Content)
	})

	return "Conversation so far:\n" + strings.Join(lines, "\n")
}

// RecentHistory bounds history to the Config's HistoryTurns most recent
// entries, oldest first (P8).
func RecentHistory(cfg Config, all []HistoryTurn) []HistoryTurn {
	if len(all) <= cfg.HistoryTurns {
		return all
	}

	return all[len(all)-cfg.HistoryTurns:]
}
