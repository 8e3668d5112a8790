package domain

// Capability declares one task type an agent can handle.
type Capability struct {
	TaskType    string `json:"task_type"`
	Description string `json:"description,omitempty"`
}

// AgentCard is the static discovery document an agent serves about itself.
type AgentCard struct {
	AgentID      string       `json:"agent_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Version      string       `json:"version"`
	Endpoint     string       `json:"endpoint,omitempty"`
	Capabilities []Capability `json:"capabilities"`
}

// Supports reports whether the card lists the given task type.
func (c AgentCard) Supports(taskType string) bool {
	for _, cp := range c.Capabilities {
		if cp.TaskType == taskType {
			return true
		}
	}
	return false
}
