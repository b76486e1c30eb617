package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/algesten/caudio/internal/logging"
	"github.com/algesten/caudio/malgohost"
)

func devicesCommand(*settings) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List playback and capture devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			host, err := malgohost.New(logging.ForService("malgohost"))
			if err != nil {
				return err
			}
			defer host.Close()

			for _, kind := range []struct {
				name string
				kind malgohost.DeviceKind
			}{
				{"Playback", malgohost.Playback},
				{"Capture", malgohost.Capture},
			} {
				devices, err := host.Devices(kind.kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s devices:\n", kind.name)
				for _, d := range devices {
					marker := " "
					if d.IsDefault {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), " %s %s\n", marker, d.Name)
				}
			}
			return nil
		},
	}
}
