package blackboard

import "sort"

// ReplayState derives a TaskState from an ordered message log. Replay is
// deterministic: the same message sequence always produces the same derived
// findings, questions and claims, regardless of which backend stored it.
//
// Claim conflicts resolve in favour of the earliest CLAIM for a subtask;
// later CLAIM messages for the same subtask are ignored.
func ReplayState(taskID string, messages []Message) *TaskState {
	state := &TaskState{
		TaskID:    taskID,
		Status:    StatusActive,
		Findings:  []Finding{},
		Questions: []Question{},
		Claims:    make(map[string]ClaimRecord),
		Messages:  messages,
	}

	for _, msg := range messages {
		switch msg.Type {
		case MessageTypeFinding:
			state.Findings = append(state.Findings, Finding{
				WorkerID:    msg.WorkerID,
				Finding:     msg.Content,
				Source:      msg.Metadata["source"],
				CreatedAtMs: msg.CreatedAtMs,
			})

		case MessageTypeQuestion:
			state.Questions = append(state.Questions, Question{
				WorkerID:    msg.WorkerID,
				Question:    msg.Content,
				CreatedAtMs: msg.CreatedAtMs,
			})

		case MessageTypeClaim:
			if _, exists := state.Claims[msg.Content]; !exists {
				state.Claims[msg.Content] = ClaimRecord{
					WorkerID:    msg.WorkerID,
					ClaimedAtMs: msg.CreatedAtMs,
					Status:      ClaimStatusInProgress,
				}
			}

		case MessageTypeSynthesize:
			state.Synthesis = &Synthesis{
				Content:     msg.Content,
				CreatedAtMs: msg.CreatedAtMs,
			}

		case MessageTypeDone:
			state.Status = StatusDone
		}
	}

	return state
}

// ContextFromState reduces a TaskState to the prompt-sized Context view.
// Claimed task names are sorted so repeated calls yield identical output.
func ContextFromState(state *TaskState) *Context {
	findings := make([]string, 0, len(state.Findings))
	for _, f := range state.Findings {
		findings = append(findings, f.Finding)
	}

	openQuestions := make([]string, 0, len(state.Questions))
	for _, q := range state.Questions {
		if !q.Answered {
			openQuestions = append(openQuestions, q.Question)
		}
	}

	claimed := make([]string, 0, len(state.Claims))
	for subtask := range state.Claims {
		claimed = append(claimed, subtask)
	}
	sort.Strings(claimed)

	return &Context{
		Findings:      findings,
		OpenQuestions: openQuestions,
		ClaimedTasks:  claimed,
		Status:        state.Status,
		MessageCount:  len(state.Messages),
	}
}
