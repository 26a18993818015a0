package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-boards/internal/app"
	"github.com/adanyl0v/go-boards/internal/client"
	"github.com/adanyl0v/go-boards/internal/ordering"
)

var errCardNotOnBoard = errors.New("card is not on the board")

func moveCmd() *cobra.Command {
	var (
		boardID, cardID, toList int64
		index                   int
		apiURL, token           string
		verbose                 bool
	)

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card to a position in a list and persist the new order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.InitCLILogger(verbose)
			cfg := app.MustReadClientEnv()
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			if token != "" {
				cfg.Token = token
			}
			logger := app.Logger()
			api := client.New(logger, cfg.APIURL, cfg.Token, cfg.Timeout)

			view, err := api.GetBoard(cmd.Context(), boardID)
			if err != nil {
				return fmt.Errorf("failed to load board: %w", err)
			}

			state := client.StateFromBoard(view)
			from, ok := containerOf(state, cardID)
			if !ok {
				return fmt.Errorf("%w: %d", errCardNotOnBoard, cardID)
			}

			var dispatchErr error
			r := ordering.NewReconciler(logger, state, api)
			r.OnDispatchError = func(_ ordering.Patch, err error) {
				dispatchErr = err
			}

			patch, err := r.Drop(cmd.Context(), ordering.Move{
				ItemID:  cardID,
				From:    from,
				To:      toList,
				ToIndex: index,
			})
			if err != nil {
				return err
			}
			r.Wait()
			if dispatchErr != nil {
				return fmt.Errorf("failed to save order: %w", dispatchErr)
			}

			for _, e := range patch {
				fmt.Fprintf(cmd.OutOrStdout(), "card %d\tlist %d\torder %d\n", e.ID, e.ContainerID, e.Order)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id")
	cmd.Flags().Int64Var(&cardID, "card", 0, "Card id")
	cmd.Flags().Int64Var(&toList, "to-list", 0, "Destination list id")
	cmd.Flags().IntVar(&index, "index", 0, "Position in the destination list")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base url, overrides BOARDS_API_URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token, overrides BOARDS_API_TOKEN")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and dispatches")
	for _, name := range []string{"board", "card", "to-list"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func containerOf(state ordering.State, itemID int64) (int64, bool) {
	for _, id := range state.Containers() {
		for _, item := range state.Items(id) {
			if item == itemID {
				return id, true
			}
		}
	}
	return 0, false
}
