package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/logger"
	"github.com/anime-shed/image-search-go/pkg/models"
)

var addCmd = &cobra.Command{
	Use:   "add <path-or-url>...",
	Short: "Catalogue images and tag them with every tagger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		copyFiles, _ := cmd.Flags().GetBool("copy")
		skip, _ := cmd.Flags().GetBool("skip-tagging")

		var failed int
		for _, location := range args {
			resp, err := c.Service().AddImage(cmd.Context(), models.AddImageRequest{
				Path:        location,
				Copy:        copyFiles,
				SkipTagging: skip,
			})
			if apperrors.IsType(err, apperrors.ErrorTypeDuplicateImage) {
				logger.WithField("path", location).Warn("Image already indexed, skipping")
				continue
			}
			if err != nil {
				logger.WithError(err).WithField("path", location).Error("Failed to add image")
				failed++
				continue
			}
			if resp.Pass != nil && resp.Pass.Error != "" {
				logger.WithFields(logrus.Fields{
					logger.FieldImageID: resp.Image.ID,
					"failures":          resp.Pass.Failures,
				}).Warn(resp.Pass.Error)
			}
			if err := printResult(cmd, resp, func() { printImage(cmd.OutOrStdout(), resp.Image) }); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d images could not be added", failed, len(args))
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List the images matching selection expressions",
	Long: `Each --select expression is one predicate; an image matching any of them
is listed once. Expressions take the form <tag><op><literal> with op one of
>= <= <> ~ = > < or <tag>//<low>..<high> for a range. "*" selects everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		selects, _ := cmd.Flags().GetStringArray("select")
		resp, err := c.Service().Query(cmd.Context(), selects)
		if err != nil {
			return err
		}
		return printResult(cmd, resp, func() {
			for _, img := range resp.Images {
				printImage(cmd.OutOrStdout(), img)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d images\n", resp.Count)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id> [tag]",
	Short: "Show an image or one of its tag values",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if len(args) == 2 {
			resp, err := c.Service().GetTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printResult(cmd, resp, func() {
				if !resp.Present {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: <absent>\n", resp.Tag)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Tag, formatValue(resp.Value, 0))
			})
		}

		resp, err := c.Service().GetImage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, resp, func() { printImage(cmd.OutOrStdout(), *resp) })
	},
}

var passCmd = &cobra.Command{
	Use:   "pass",
	Short: "Run taggers over a selection and store the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		taggers, _ := cmd.Flags().GetStringArray("tagger")
		selects, _ := cmd.Flags().GetStringArray("select")
		resp, err := c.Service().RunPass(cmd.Context(), models.PassRequest{Taggers: taggers, Select: selects})
		if resp == nil {
			return err
		}
		if perr := printResult(cmd, resp, func() { printPass(cmd.OutOrStdout(), resp) }); perr != nil {
			return perr
		}
		return err
	},
}

var distancesCmd = &cobra.Command{
	Use:   "distances <id> <tag>",
	Short: "Rank images by tag distance to a reference image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		n, _ := cmd.Flags().GetInt("limit")
		resp, err := c.Service().Closest(cmd.Context(), args[0], args[1], n)
		if err != nil {
			return err
		}
		return printResult(cmd, resp, func() {
			for i, r := range resp.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-12s  %s  %s\n", i+1, strconv.FormatFloat(r.Distance, 'g', 6, 64), r.ID, r.Path)
			}
		})
	},
}

var taggersCmd = &cobra.Command{
	Use:   "taggers",
	Short: "List the registered taggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		taggers := c.Service().Taggers()
		return printResult(cmd, models.TaggersResponse{Taggers: taggers}, func() {
			printTaggers(cmd.OutOrStdout(), taggers)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalogue over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		cfg := c.Config()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Host, cfg.Port = splitAddr(addr, cfg.Port)
		}

		// passes may outlive the request timeout, so writes are unbounded
		server := &http.Server{
			Addr:              cfg.ServerAddress(),
			Handler:           c.Handler(),
			ReadHeaderTimeout: cfg.RequestTimeout,
			ReadTimeout:       cfg.RequestTimeout,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.WithFields(logrus.Fields{
				"address": cfg.ServerAddress(),
				"timeout": cfg.RequestTimeout.String(),
			}).Info("Starting HTTP server")

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
			return err
		}
		logger.Info("Server exited")
		return nil
	},
}

func init() {
	addCmd.Flags().Bool("copy", false, "copy local files into the content addressed index first")
	addCmd.Flags().Bool("skip-tagging", false, "catalogue without running the taggers")

	queryCmd.Flags().StringArrayP("select", "s", nil, "selection expression (repeatable)")

	passCmd.Flags().StringArrayP("tagger", "t", nil, "tagger to run (repeatable, default all)")
	passCmd.Flags().StringArrayP("select", "s", nil, "selection expression (repeatable, default all images)")

	distancesCmd.Flags().IntP("limit", "n", 10, "number of neighbours to list")

	serveCmd.Flags().String("addr", "", "listen address host:port (default $HOST:$PORT)")
}
