package main

import (
	"errors"
	"math/rand"
	"time"

	"github.com/marosg42/virtual-cluster/flags"
	"github.com/marosg42/virtual-cluster/inventory"
	"github.com/marosg42/virtual-cluster/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var agentsCmd = &cobra.Command{
	Use:   "agents SERVER...",
	Short: "List ranked candidate agents for the given servers",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		agentDataURL := viper.GetString(flags.AgentDataURL)
		if agentDataURL == "" {
			return errors.New("agent data URL is not configured")
		}

		log.Debug("Fetching agent data", "url", agentDataURL)
		agents, err := inventory.NewFetcher(agentDataURL, log.Base).Agents(cmd.Context())
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for _, name := range inventory.Select(rng, agents, args, log.Base) {
			cmd.Println(name)
		}
		return nil
	},
}
