package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"idealista-parser-service/internal"
	"idealista-parser-service/internal/adapters/export"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/usecase"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// searchOptions - значения флагов команды search
type searchOptions struct {
	country       string
	operation     string
	propertyType  string
	locationID    string
	center        string
	distance      float64
	minPrice      float64
	maxPrice      float64
	maxItems      int
	numPage       int
	locale        string
	sinceDate     string
	order         string
	sort          string
	hasMultimedia bool
	bankOffer     bool
	adIDs         []string

	all     bool
	delay   time.Duration
	jsonOut string
	csvOut  string
}

var searchOpts searchOptions

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.country, "country", string(domain.CountrySpain), "country code: es, pt, it")
	f.StringVar(&searchOpts.operation, "operation", string(domain.OperationSale), "sale or rent")
	f.StringVar(&searchOpts.propertyType, "property-type", string(domain.PropertyTypeHomes), "homes, offices, premises, garages, bedrooms")
	f.StringVar(&searchOpts.locationID, "location-id", "", "idealista location id, e.g. 0-EU-ES-28 (see the locations command)")
	f.StringVar(&searchOpts.center, "center", "", "search center as 'lat,lon'")
	f.Float64Var(&searchOpts.distance, "distance", 0, "radius around --center in meters")
	f.Float64Var(&searchOpts.minPrice, "min-price", 0, "minimum price")
	f.Float64Var(&searchOpts.maxPrice, "max-price", 0, "maximum price")
	f.IntVar(&searchOpts.maxItems, "max-items", domain.DefaultMaxItems, fmt.Sprintf("items per page, 1-%d", domain.MaxItemsLimit))
	f.IntVar(&searchOpts.numPage, "page", domain.DefaultNumPage, "page to fetch (ignored with --all)")
	f.StringVar(&searchOpts.locale, "locale", "", "response locale, e.g. es_ES, en_GB")
	f.StringVar(&searchOpts.sinceDate, "since-date", "", "only ads published since YYYY-MM-DD")
	f.StringVar(&searchOpts.order, "order", "", "asc or desc")
	f.StringVar(&searchOpts.sort, "sort", "", "price, publicationDate, size, floor, distance, modificationDate")
	f.BoolVar(&searchOpts.hasMultimedia, "has-multimedia", false, "only ads with photos or video")
	f.BoolVar(&searchOpts.bankOffer, "bank-offer", false, "only bank-owned properties")
	f.StringSliceVar(&searchOpts.adIDs, "ad-ids", nil, "comma separated ad ids")

	f.BoolVar(&searchOpts.all, "all", false, "fetch every page of the result set")
	f.DurationVar(&searchOpts.delay, "delay", 0, "pause between page requests with --all (default FETCH_DELAY_SECONDS or 2s)")
	f.StringVar(&searchOpts.jsonOut, "json-out", "", "write results to a JSON file")
	f.StringVar(&searchOpts.csvOut, "csv-out", "", "write properties to a CSV file")

	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search properties",
	Example: `  idealista-parser-service search --country es --operation rent --location-id 0-EU-ES-28 --max-items 50
  idealista-parser-service search --country pt --center 38.7223,-9.1393 --distance 2000 --all --csv-out lisbon.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildSearchRequest(searchOpts, cmd.Flags().Changed)
		if err != nil {
			return err
		}

		app, err := internal.NewApp(cmd.Context(), internal.Options{
			EnvFile:   envFile,
			LogLevel:  logLevel,
			PageDelay: searchOpts.delay,
			Publish:   searchOpts.all,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Close()

		ctx := app.Context(cmd.Context())
		// данные в stdout, прогресс и сводка в stderr
		out, info := cmd.OutOrStdout(), cmd.ErrOrStderr()

		var responses []*domain.SearchResponse
		if searchOpts.all {
			run, runErr := fetchAll(ctx, app.FetchAllPages(), req, info)
			responses = run.Responses()
			if runErr != nil && len(responses) == 0 {
				return runErr
			}
			if runErr != nil {
				fmt.Fprintf(info, "Run stopped early: %v\n", runErr)
			}
			fmt.Fprintf(info, "Run %s: %s\n", run.ID, run.Status())
		} else {
			resp, err := app.QueryPage().Execute(ctx, req)
			if err != nil {
				return err
			}
			responses = []*domain.SearchResponse{resp}
		}

		return writeResults(out, info, responses, searchOpts)
	},
}

// buildSearchRequest переносит в запрос только явно заданные флаги.
// changed - cmd.Flags().Changed.
func buildSearchRequest(o searchOptions, changed func(string) bool) (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Country:      domain.Country(strings.ToLower(o.country)),
		Operation:    domain.Operation(o.operation),
		PropertyType: domain.PropertyType(o.propertyType),
		MaxItems:     o.maxItems,
		NumPage:      o.numPage,
	}

	if o.locationID != "" {
		req.LocationID = &o.locationID
	}
	if o.center != "" {
		c, err := domain.ParseCoordinates(o.center)
		if err != nil {
			return domain.SearchRequest{}, &domain.ValidationError{Field: "center", Reason: err.Error()}
		}
		req.Center = &c
	}
	if changed("distance") {
		req.Distance = &o.distance
	}
	if changed("min-price") {
		req.MinPrice = &o.minPrice
	}
	if changed("max-price") {
		req.MaxPrice = &o.maxPrice
	}
	if o.locale != "" {
		l := domain.Locale(o.locale)
		req.Locale = &l
	}
	if o.sinceDate != "" {
		t, err := time.Parse(domain.SinceDateLayout, o.sinceDate)
		if err != nil {
			return domain.SearchRequest{}, &domain.ValidationError{Field: "since_date", Reason: "must be in YYYY-MM-DD format"}
		}
		req.SinceDate = &t
	}
	if o.order != "" {
		ord := domain.Order(o.order)
		req.Order = &ord
	}
	if o.sort != "" {
		s := domain.SortField(o.sort)
		req.Sort = &s
	}
	if changed("has-multimedia") {
		req.HasMultimedia = &o.hasMultimedia
	}
	if changed("bank-offer") {
		req.BankOffer = &o.bankOffer
	}
	if len(o.adIDs) > 0 {
		req.AdIDs = o.adIDs
	}

	if err := req.Validate(); err != nil {
		return domain.SearchRequest{}, err
	}
	return req, nil
}

// fetchAll запускает выгрузку всех страниц. Первый SIGINT/SIGTERM отменяет run
// между страницами, полученные страницы при этом сохраняются.
func fetchAll(ctx context.Context, uc *usecase.FetchAllPagesUseCase, req domain.SearchRequest, out io.Writer) (*usecase.PaginationRun, error) {
	handle := uc.Start(ctx, req, func(p domain.PageProgress) {
		fmt.Fprintf(out, "Fetched page %d/%d (%s properties so far)\n",
			p.Page, p.TotalPages, humanize.Comma(int64(p.PropertiesCount)))
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-handle.Done():
	case sig := <-quit:
		fmt.Fprintf(out, "Received %s, stopping after the current page...\n", sig)
		handle.Cancel()
	}

	run, err := handle.Wait()
	var pageErr *usecase.PageFetchError
	if errors.As(err, &pageErr) && pageErr.Page == 1 {
		return run, pageErr.Err
	}
	return run, err
}

func writeResults(out, info io.Writer, responses []*domain.SearchResponse, o searchOptions) error {
	doc, err := export.BuildDocument(responses, o.all, time.Now())
	if err != nil {
		if errors.Is(err, export.ErrNoResults) {
			fmt.Fprintln(info, "No results.")
			return nil
		}
		return err
	}

	fmt.Fprintf(info, "Total: %s properties in %s pages, fetched %s\n",
		humanize.Comma(int64(doc.Metadata.Total)),
		humanize.Comma(int64(doc.Metadata.TotalPages)),
		humanize.Comma(int64(len(doc.Properties))))

	if o.jsonOut == "" && o.csvOut == "" {
		return export.WriteJSON(out, doc)
	}
	if o.jsonOut != "" {
		if err := export.SaveJSON(o.jsonOut, doc); err != nil {
			return err
		}
		fmt.Fprintf(info, "Saved JSON to %s\n", o.jsonOut)
	}
	if o.csvOut != "" && len(doc.Properties) == 0 {
		fmt.Fprintln(info, "No properties, CSV not written.")
	} else if o.csvOut != "" {
		if err := export.SaveCSV(o.csvOut, doc.Properties); err != nil {
			return err
		}
		fmt.Fprintf(info, "Saved CSV to %s\n", o.csvOut)
	}
	return nil
}
