package scene

const TaskTypeScene = "scene:task"

// Params is the caller-supplied configuration bag. Zero values fall back
// to the process defaults.
type Params struct {
	Iterations int `json:"iterations,omitempty"`
	FPS        int `json:"fps,omitempty"`
}

// Request describes one scene job.
type Request struct {
	VideoURL string `json:"video_url"`
	SceneID  string `json:"scene_id,omitempty"`
	Params   Params `json:"params"`
}

// Payload is the task body carried through the queue.
type Payload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}

// ProgressFunc receives milestone updates: a fixed percentage and a short
// stage tag. Percentages are non-decreasing over one run.
type ProgressFunc func(progress int, stage string)
