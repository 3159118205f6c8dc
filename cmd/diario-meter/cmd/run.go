package cmd

import (
	"cmp"
	"context"
	"errors"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/tui/meter"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

var (
	runDevice string
	runBars   int
	runTick   time.Duration
	runFFmpeg string
	runSave   bool
)

var errSaveWithoutConfig = errors.New("--save requer --config")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Mostra o medidor de nível ao vivo",
	Long: `Captura a entrada de áudio e mostra o medidor de nível no terminal.

Teclas:
  espaço / p  pausar
  r           zerar o pico
  q / Ctrl+C  sair`,
	RunE: runMeter,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runDevice, "device", "d", "", "Entrada de áudio (padrão: configuração ou dispositivo padrão)")
	runCmd.Flags().IntVar(&runBars, "bars", 0, "Número de barras (padrão: configuração)")
	runCmd.Flags().DurationVar(&runTick, "tick", 0, "Intervalo de atualização (padrão: configuração)")
	runCmd.Flags().StringVar(&runFFmpeg, "ffmpeg", "", "Caminho do FFmpeg")
	runCmd.Flags().BoolVar(&runSave, "save", false, "Grava --device como entrada padrão no arquivo de configuração")
}

func runMeter(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("configuração", err)
		return err
	}
	if runSave && runDevice != "" {
		if cfgFile == "" {
			return errSaveWithoutConfig
		}
		if err := cfg.SetAudioInput(runDevice); err != nil {
			printError("gravar configuração", err)
			return err
		}
	}
	snap := cfg.Snapshot()

	meterCfg := audio.DefaultMeterConfig()
	meterCfg.Bars = cmp.Or(runBars, snap.MeterBars, audio.DefaultBarCount)
	meterCfg.Interval = cmp.Or(runTick, snap.MeterTick, audio.DefaultTickInterval)

	ctx, stop := signal.NotifyContext(context.Background(), util.ShutdownSignals()...)
	defer stop()

	err = meter.Run(ctx, meter.Config{
		Device:     cmp.Or(runDevice, snap.AudioInput),
		FFmpegPath: util.ResolveFFmpegPath(cmp.Or(runFFmpeg, snap.FFmpegPath)),
		Meter:      meterCfg,
	})
	if err != nil {
		printError("medidor", err)
	}
	return err
}
