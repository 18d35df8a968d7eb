package job

// Job is the internal job record kept in redis while a scene is processed
// and for a while after it reaches a terminal state.
type Job struct {
	JobID    string       `json:"job_id"`
	Type     Type         `json:"type"`
	Status   Status       `json:"status"`
	Progress int          `json:"progress"`
	Stage    string       `json:"stage,omitempty"`
	Result   *SceneResult `json:"result,omitempty"`
}

type Type string

const (
	TypeScene Type = "scene"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SceneResult is the terminal output of one scene pipeline. Either PltURL
// is set (success) or Error is (failure); Progress carries the milestone
// reached.
type SceneResult struct {
	Status   string `json:"status"`
	SceneID  string `json:"scene_id,omitempty"`
	Progress int    `json:"progress"`
	PltURL   string `json:"plt_url,omitempty"`
	Error    string `json:"error,omitempty"`
}
