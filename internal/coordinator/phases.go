package coordinator

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/chair4ce/swarm/internal/dispatch"
)

// Phase implementations shared by the polling and realtime paths. Each
// phase dispatches one fan-out batch and appends its successful results to
// the board. A failed batch item contributes nothing for the round; only a
// dispatcher-level error (engine unreachable) propagates.

// initialSearch fans out one search per subject and posts the top items of
// each successful result as findings.
func (c *Coordinator) initialSearch(ctx context.Context, topic string, subjects []string) error {
	tasks := make([]dispatch.Task, 0, len(subjects))
	for i, subject := range subjects {
		tasks = append(tasks, dispatch.Task{
			NodeType: dispatch.NodeSearch,
			Tool:     "web_search",
			Input:    subject + " " + topic,
			Options:  dispatch.Options{Count: initialSearchCount},
			Metadata: map[string]string{
				"subject":  subject,
				"workerId": fmt.Sprintf("search-%d", i),
			},
		})
	}

	batch, err := c.dispatcher.ExecuteParallel(ctx, tasks)
	if err != nil {
		return fmt.Errorf("initial search failed: %w", err)
	}

	for i, res := range batch.Results {
		if !res.Success {
			continue
		}
		items := res.Search
		if len(items) > findingsPerSearch {
			items = items[:findingsPerSearch]
		}
		for _, item := range items {
			workerID := fmt.Sprintf("search-worker-%d", i)
			content := fmt.Sprintf("[%s] %s: %s", subjects[i], item.Title, item.Description)
			if err := c.board.PostFinding(ctx, workerID, content, map[string]string{"source": item.URL}); err != nil {
				// One dropped finding does not abort the round.
				log.Printf("[Coordinator] Failed to post finding: %v", err)
			}
		}
	}

	return nil
}

// followUpSearch fans out one search per open question and posts the first
// hit of each successful result as a finding answering that question.
func (c *Coordinator) followUpSearch(ctx context.Context, topic string, questions []string) error {
	if len(questions) == 0 {
		return nil
	}

	tasks := make([]dispatch.Task, 0, len(questions))
	for i, q := range questions {
		tasks = append(tasks, dispatch.Task{
			NodeType: dispatch.NodeSearch,
			Tool:     "web_search",
			Input:    q + " " + topic,
			Options:  dispatch.Options{Count: followUpSearchCount},
			Metadata: map[string]string{
				"question": q,
				"workerId": fmt.Sprintf("followup-%d", i),
			},
		})
	}

	batch, err := c.dispatcher.ExecuteParallel(ctx, tasks)
	if err != nil {
		return fmt.Errorf("follow-up search failed: %w", err)
	}

	for i, res := range batch.Results {
		if !res.Success || len(res.Search) == 0 {
			continue
		}
		item := res.Search[0]
		workerID := fmt.Sprintf("followup-worker-%d", i)
		content := fmt.Sprintf("[Answer to: %s] %s", questions[i], item.Title)
		if err := c.board.PostFinding(ctx, workerID, content, map[string]string{"source": item.URL}); err != nil {
			log.Printf("[Coordinator] Failed to post finding: %v", err)
		}
	}

	return nil
}

// analyzeAndQuestion summarises the most recent findings into one analysis
// request and posts the returned questions to the board. Analysis-phase
// failures degrade to "no new questions this round"; only engine
// unavailability propagates.
func (c *Coordinator) analyzeAndQuestion(ctx context.Context, topic string, findings []string) error {
	if len(findings) < 2 {
		return nil
	}

	summary := strings.Join(lastN(findings, recentFindings), "\n- ")

	tasks := []dispatch.Task{{
		NodeType: dispatch.NodeAnalyze,
		Instruction: fmt.Sprintf(`Given these findings about %q:
- %s

What 1-2 important questions remain? Be specific, one line each.`, topic, summary),
	}}

	batch, err := c.dispatcher.ExecuteParallel(ctx, tasks)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if len(batch.Results) == 0 || !batch.Results[0].Success {
		return nil
	}

	for _, q := range parseQuestions(batch.Results[0].Response) {
		if err := c.board.PostQuestion(ctx, "analysis-worker", q, nil); err != nil {
			log.Printf("[Coordinator] Failed to post question: %v", err)
		}
	}

	return nil
}

// synthesize rolls every finding up into one narrative via a single
// analysis request. A failed item yields a fallback string rather than an
// error so a run that gathered findings still terminates normally.
func (c *Coordinator) synthesize(ctx context.Context, topic string, findings []string) (string, error) {
	numbered := make([]string, 0, len(findings))
	for i, f := range findings {
		numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, f))
	}

	tasks := []dispatch.Task{{
		NodeType: dispatch.NodeAnalyze,
		Instruction: fmt.Sprintf(`Synthesize these findings about %q into a 2-3 paragraph summary:

%s`, topic, strings.Join(numbered, "\n")),
	}}

	batch, err := c.dispatcher.ExecuteParallel(ctx, tasks)
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}

	if len(batch.Results) == 0 || !batch.Results[0].Success || batch.Results[0].Response == "" {
		return "Synthesis failed", nil
	}

	return batch.Results[0].Response, nil
}

var questionPrefix = regexp.MustCompile(`^[-*\d.]\s*`)

// parseQuestions extracts up to questionsPerRound question lines from an
// analysis response, dropping short fragments and list markers.
func parseQuestions(response string) []string {
	var questions []string
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= minQuestionLen {
			continue
		}
		questions = append(questions, questionPrefix.ReplaceAllString(trimmed, ""))
		if len(questions) == questionsPerRound {
			break
		}
	}
	return questions
}
