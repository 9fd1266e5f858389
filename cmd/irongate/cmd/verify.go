package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradeops/irongate/forensic"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [files or directories]",
	Short: "Verify forensic snapshots against their embedded hashes",
	Long: `Re-hash OHLCV snapshot files and compare against the hash recorded
inside each file. Directories are walked for *.json snapshots.

Example:
  irongate verify data/forensics/ohlcv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".json") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, path := range paths {
		if err := forensic.VerifySnapshot(path); err != nil {
			failed++
			fmt.Printf("✗ %v\n", err)
			continue
		}
		fmt.Printf("✓ %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed verification", failed, len(paths))
	}
	fmt.Printf("\n%d snapshots verified\n", len(paths))
	return nil
}
