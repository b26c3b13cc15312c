package main

import (
	"context"
	"time"

	"github.com/layer-3/dealguard/adapters/sui"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	dialBase  = 500 * time.Millisecond
	dialCap   = 30 * time.Second
	checkWait = 5 * time.Second
)

// connectChain dials the fullnode until it answers, then hands the client to
// ready. It gives up only when ctx is cancelled.
func connectChain(ctx context.Context, url string, log zerolog.Logger, ready func(*sui.Client)) {
	backoff, err := retry.NewExponential(dialBase)
	if err != nil {
		log.Error().Err(err).Msg("create retry mechanism")
		return
	}
	backoff = retry.WithCappedDuration(dialCap, backoff)

	var client *sui.Client
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := sui.Dial(ctx, url, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("chain node unreachable, retrying")
			return retry.RetryableError(err)
		}

		checkCtx, cancel := context.WithTimeout(ctx, checkWait)
		defer cancel()
		chainID, err := c.ChainIdentifier(checkCtx)
		if err != nil {
			c.Close()
			log.Warn().Err(err).Str("url", url).Msg("chain node unreachable, retrying")
			return retry.RetryableError(err)
		}

		log.Info().Str("url", url).Str("chain", chainID).Msg("connected to chain node")
		client = c
		return nil
	})
	if err != nil {
		log.Info().Err(err).Msg("stopped connecting to chain node")
		return
	}

	ready(client)
}
