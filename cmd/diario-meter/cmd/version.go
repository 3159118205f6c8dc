package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oszuidwest/diario-bordo/internal/update"
)

// Build information, set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	versionCheck bool
	releasesURL  string // empty uses the GitHub API
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Mostra a versão e verifica atualizações",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "diario-meter %s (%s)\n", update.Normalize(Version), Commit)
		if !versionCheck {
			return nil
		}

		checker := update.NewChecker(Version, nil, releasesURL)
		if err := checker.Check(cmd.Context()); err != nil && !errors.Is(err, update.ErrNoRelease) {
			printError("verificar atualizações", err)
			return err
		}
		if st := checker.Status(); st.UpdateAvailable {
			fmt.Fprintf(out, "Nova versão disponível: %s\n", st.Latest)
		} else {
			fmt.Fprintln(out, "Nenhuma atualização disponível")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Consulta a versão mais recente publicada")
}
