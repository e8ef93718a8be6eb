package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"idealista-parser-service/internal/adapters/locations"
	"idealista-parser-service/internal/configs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	locationsFile   string
	locationsType   string
	locationsSearch string
	locationsTypes  bool
)

func init() {
	f := locationsCmd.Flags()
	f.StringVar(&locationsFile, "file", "", "catalogue file (default LOCATIONS_FILE or locationId_list.json)")
	f.StringVar(&locationsType, "type", "", "only locations of this type")
	f.StringVar(&locationsSearch, "search", "", "case-insensitive substring of the location name")
	f.BoolVar(&locationsTypes, "types", false, "list location types instead of locations")

	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List location ids usable with search --location-id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := locationsFile
		if path == "" {
			cfg, err := configs.LoadConfig(envFile)
			if err != nil {
				return err
			}
			path = cfg.LocationsFile
		}

		catalogue, err := locations.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if locationsTypes {
			for _, t := range catalogue.Types() {
				fmt.Fprintln(out, t)
			}
			return nil
		}

		found := filterLocations(catalogue, locationsType, locationsSearch)
		if err := printLocations(out, found); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s locations\n", humanize.Comma(int64(len(found))))
		return nil
	},
}

// filterLocations - пересечение фильтров по типу и по названию
func filterLocations(c *locations.Catalogue, locationType, query string) []locations.Location {
	byName := make(map[string]struct{})
	for _, l := range c.Search(query) {
		byName[l.LocationID] = struct{}{}
	}

	var out []locations.Location
	for _, l := range c.ByType(locationType) {
		if _, ok := byName[l.LocationID]; ok {
			out = append(out, l)
		}
	}
	return out
}

func printLocations(w io.Writer, list []locations.Location) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION ID\tTYPE\tNAME")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.LocationID, l.Type, l.Name)
	}
	return tw.Flush()
}
