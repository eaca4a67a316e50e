package inventory

import (
	"log/slog"
	"math/rand"
	"slices"

	"github.com/samber/lo"
)

// Select ranks the agents usable for the given target servers, most desirable
// first. Agents with a positive streak come before the rest, but are shuffled
// among themselves so equally healthy agents share the load; agents on a
// failure streak are deprioritized, not excluded, and stay ordered by streak.
func Select(rng *rand.Rand, agents []Agent, servers []string, logger *slog.Logger) []string {
	candidates := lo.Filter(agents, func(agent Agent, _ int) bool {
		return lo.Some(agent.Queues, servers)
	})

	logger.Info("Available agents", "count", len(candidates))
	for _, agent := range candidates {
		logger.Info("Agent", "name", agent.Name, "state", agent.State, "streak", agent.Streak())
	}

	waiting := lo.Filter(candidates, func(agent Agent, _ int) bool {
		return agent.State == AgentStateWaiting
	})
	slices.SortStableFunc(waiting, func(a, b Agent) int {
		return b.Streak() - a.Streak()
	})

	positive, rest := lo.FilterReject(waiting, func(agent Agent, _ int) bool {
		return agent.Streak() > 0
	})
	rng.Shuffle(len(positive), func(i, j int) {
		positive[i], positive[j] = positive[j], positive[i]
	})

	ranked := append(positive, rest...)

	logger.Info("Agents ranked by preference")
	for _, agent := range ranked {
		logger.Info("Candidate", "name", agent.Name, "streak", agent.Streak())
	}

	return lo.Map(ranked, func(agent Agent, _ int) string {
		return agent.Name
	})
}
