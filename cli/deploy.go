package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/marosg42/virtual-cluster/deploy"
	"github.com/marosg42/virtual-cluster/flags"
	"github.com/marosg42/virtual-cluster/inventory"
	"github.com/marosg42/virtual-cluster/log"
	"github.com/marosg42/virtual-cluster/testflinger"
	"github.com/marosg42/virtual-cluster/ui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var deployCmd = &cobra.Command{
	Use:   "deploy SERVER_FILE",
	Short: "Submit an overprovisioned batch of reservation jobs and keep the winners",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		servers, err := readServersFile(args[0])
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			return fmt.Errorf("no servers listed in '%s'", args[0])
		}
		log.Debug("Read servers file", "file", args[0], "servers", len(servers))

		agentDataURL := viper.GetString(flags.AgentDataURL)
		if agentDataURL == "" {
			return errors.New("agent data URL is not configured")
		}

		config := deploy.Config{
			OutputDir:           viper.GetString(flags.OutputDir),
			Template:            viper.GetString(flags.Template),
			DistroSeries:        viper.GetString(flags.DistroSeries),
			AgentLimit:          viper.GetInt(flags.AgentLimit),
			CompletionThreshold: viper.GetInt(flags.CompletionThreshold),
			GracePeriod:         viper.GetDuration(flags.GracePeriod),
			Logger:              log.Base,
		}
		client := testflinger.NewCLI(testflinger.Config{
			Binary:  viper.GetString(flags.TestflingerBinary),
			Timeout: viper.GetDuration(flags.CommandTimeout),
			Logger:  log.Base,
		})

		deployer := deploy.NewDeployer(config, client, inventory.NewFetcher(agentDataURL, log.Base))

		var spinner *ui.Spinner
		if !verbose {
			spinner = ui.NewSpinner(fmt.Sprintf("Deploying run '%s'", deployer.Name()))
		}

		results, err := deployer.Run(cmd.Context(), servers)
		if err != nil {
			spinner.Fail()
			return err
		}
		spinner.Success(fmt.Sprintf("Reserved %d machines", len(results)))
		log.Info("Deployment complete", "run", deployer.Name().String(), "machines", len(results))

		if err := yaml.NewEncoder(cmd.OutOrStdout()).Encode(results); err != nil {
			return err
		}
		ips := lo.FilterMap(results, func(result deploy.Result, _ int) (string, bool) {
			return result.IP, result.IP != ""
		})
		cmd.Println(color.HiGreenString(strings.Join(ips, " ")))
		return nil
	},
}

func readServersFile(file string) ([]string, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("could not read servers file: %w", err)
	}
	return strings.Fields(string(buf)), nil
}
