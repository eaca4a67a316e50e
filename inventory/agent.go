package inventory

// Agent is a read-only snapshot of one entry of the agent inventory endpoint.
type Agent struct {
	Name                 string   `json:"name"`
	State                string   `json:"state"`
	Queues               []string `json:"queues"`
	ProvisionStreakCount int      `json:"provision_streak_count"`
	ProvisionStreakType  string   `json:"provision_streak_type"`
}

// AgentStateWaiting is the only state in which an agent accepts new jobs.
const AgentStateWaiting = "waiting"

// Streak is the signed provisioning streak: positive for consecutive
// successful provisions, negative for consecutive failures, zero when the
// inventory has no streak data for the agent.
func (a Agent) Streak() int {
	if a.ProvisionStreakType == "fail" {
		return -a.ProvisionStreakCount
	}
	return a.ProvisionStreakCount
}
