// Package cmd implements the diario-meter command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/diario-bordo/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "diario-meter",
	Short: "Medidor de nível de áudio do Diário de Bordo",
	Long: `diario-meter mostra o nível de uma entrada de áudio local no terminal,
com as mesmas faixas de cor e indicador de pico do medidor web.

Comandos:
  run      - medidor ao vivo
  devices  - lista as entradas de áudio disponíveis
  version  - mostra a versão e verifica atualizações`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Arquivo de configuração do serviço (opcional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log detalhado")
}

// loadConfig reads the service config when --config is given, otherwise the
// defaults.
func loadConfig() (*config.Config, error) {
	cfg := config.New(cfgFile)
	if cfgFile == "" {
		return cfg, nil
	}
	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("carregar configuração: %w", err)
	}
	return cfg, nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Erro: %s: %v\n", msg, err)
}
