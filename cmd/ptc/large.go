package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/photo-tidy/internal/util"
)

var largeCmd = &cobra.Command{
	Use:   "large",
	Short: "List the largest assets in the library",
	Long: `List the largest assets by file size. Useful for spotting screen
recordings and exports that dwarf everything else in the library.`,
	RunE: runLarge,
}

func init() {
	rootCmd.AddCommand(largeCmd)

	largeCmd.Flags().IntP("count", "n", 20, "number of assets to show")
	largeCmd.Flags().String("kind", "", "only this kind (photo, video)")
}

func runLarge(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	library := newLibrary(db)
	assets, err := library.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	if kindFlag != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if string(a.Kind) == kindFlag {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}
	if len(assets) == 0 {
		util.InfoLog("No matching assets")
		return nil
	}

	sort.Slice(assets, func(i, j int) bool {
		if assets[i].SizeBytes != assets[j].SizeBytes {
			return assets[i].SizeBytes > assets[j].SizeBytes
		}
		return assets[i].ID < assets[j].ID
	})

	count, _ := cmd.Flags().GetInt("count")
	if count > 0 && count < len(assets) {
		assets = assets[:count]
	}

	var rows [][]string
	var total int64
	for _, a := range assets {
		detail := "-"
		if a.Width > 0 {
			detail = fmt.Sprintf("%dx%d", a.Width, a.Height)
		}
		rows = append(rows, []string{
			a.Path,
			string(a.Kind),
			detail,
			humanize.IBytes(uint64(a.SizeBytes)),
		})
		total += a.SizeBytes
	}

	fmt.Println(renderTable(
		[]string{"Asset", "Kind", "Resolution", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	util.InfoLog("")
	util.InfoLog("Top %d assets hold %s", len(assets), humanize.IBytes(uint64(total)))
	return nil
}
