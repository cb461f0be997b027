package remediation

import "fmt"

// Task is the instruction handed to the agent for one run.
type Task string

func (t Task) String() string { return string(t) }

const taskTemplate = `An n8n workflow has failed and needs to be fixed.

WORKFLOW INFO:
- Workflow ID: %[1]s
- Workflow Name: %[2]s
- Execution ID: %[3]s
- Failed Node: %[4]s
- Error Message: %[5]s

YOUR TASK:
1. Use n8n_get_workflow with id "%[1]s" to fetch the current workflow
2. Analyze what went wrong based on the error message
3. Use n8n_update_partial_workflow to apply the fix
4. Explain what you fixed and why

Apply fixes directly without asking for permission.`

// BuildTask renders fc into the agent instruction. The template is the same
// for every failure; only the embedded fields vary.
func BuildTask(fc FailureContext) Task {
	return Task(fmt.Sprintf(taskTemplate,
		fc.WorkflowID,
		fc.WorkflowName,
		fc.ExecutionID,
		fc.FailedNode,
		fc.ErrorMessage,
	))
}
