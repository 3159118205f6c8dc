package cmd

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

var devicesFFmpeg string

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"dispositivos", "ls"},
	Short:   "Lista as entradas de áudio disponíveis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			printError("configuração", err)
			return err
		}
		snap := cfg.Snapshot()

		ffmpeg := util.ResolveFFmpegPath(cmp.Or(devicesFFmpeg, snap.FFmpegPath))
		devices := audio.ListDevices(cmd.Context(), ffmpeg)
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nenhuma entrada de áudio encontrada")
			return nil
		}
		for _, d := range devices {
			marker := " "
			if d.ID == snap.AudioInput {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-24s %s\n", marker, d.ID, d.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().StringVar(&devicesFFmpeg, "ffmpeg", "", "Caminho do FFmpeg")
}
