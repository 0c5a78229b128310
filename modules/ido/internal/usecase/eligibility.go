package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

const tierAttribute = "tier"

// NftProof claims the tier carried by a token of the tier NFT contract.
type NftProof struct {
	TokenID    string
	ViewingKey string
}

// EffectiveTier returns the better of the staking tier of address and the tier of the NFT in proof.
func (u *Usecase) EffectiveTier(ctx context.Context, address string, proof *NftProof) (uint8, error) {
	config, err := u.dg.GetConfig(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get config")
	}
	tier, err := u.effectiveTier(ctx, config, address, proof)
	return tier, errors.WithStack(err)
}

func (u *Usecase) effectiveTier(ctx context.Context, config *entity.Config, address string, proof *NftProof) (uint8, error) {
	var stakingTier, nftTier uint8
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		tier, err := u.tiers.TierOf(gctx, address)
		if err != nil {
			return errors.Wrap(err, "failed to get staking tier")
		}
		stakingTier = tier
		return nil
	})
	if proof != nil {
		group.Go(func() error {
			tier, err := u.nftTier(gctx, config, address, *proof)
			if err != nil {
				return errors.WithStack(err)
			}
			nftTier = tier
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, errors.WithStack(err)
	}

	tier := min(stakingTier, config.MinTier())
	if nftTier != 0 && nftTier < tier {
		logger.DebugContext(ctx, "nft tier overrides staking tier",
			slogx.Int("stakingTier", int(stakingTier)),
			slogx.Int("nftTier", int(nftTier)),
		)
		tier = nftTier
	}
	return tier, nil
}

// nftTier verifies that address owns the token and reads its tier attribute.
func (u *Usecase) nftTier(ctx context.Context, config *entity.Config, address string, proof NftProof) (uint8, error) {
	if config.NftContract == "" {
		return 0, errors.Wrap(errs.InvalidNftTier, "tier nft is not configured")
	}
	viewer := contracts.Viewer{Address: address, ViewingKey: proof.ViewingKey}
	owner, err := u.chain.OwnerOf(ctx, config.NftContract, proof.TokenID, viewer)
	if err != nil {
		return 0, errors.Wrapf(errs.InvalidNftTier, "can't verify owner of token %q: %v", proof.TokenID, err)
	}
	if owner != address {
		return 0, errors.Wrapf(errs.InvalidNftTier, "token %q is not owned by %s", proof.TokenID, address)
	}
	metadata, err := u.chain.MetadataOf(ctx, config.NftContract, proof.TokenID, viewer)
	if err != nil {
		return 0, errors.Wrapf(errs.InvalidNftTier, "can't read metadata of token %q: %v", proof.TokenID, err)
	}

	value, ok := tierValue(metadata.Private)
	if !ok {
		value, ok = tierValue(metadata.Public)
	}
	if !ok {
		return 0, errors.Wrapf(errs.InvalidNftTier, "token %q has no tier attribute", proof.TokenID)
	}
	tier, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
	if err != nil || tier == 0 || uint8(tier) > config.MinTier() {
		return 0, errors.Wrapf(errs.InvalidNftTier, "token %q has invalid tier %q", proof.TokenID, value)
	}
	return uint8(tier), nil
}

func tierValue(metadata *contracts.Metadata) (string, bool) {
	if metadata == nil {
		return "", false
	}
	for _, attr := range metadata.Attributes {
		if strings.EqualFold(attr.TraitType, tierAttribute) {
			return attr.Value, true
		}
	}
	return "", false
}
