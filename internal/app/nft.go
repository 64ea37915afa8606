package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const nftContract = "viego-badges-v1"

var badgeRarity = map[string]string{
	"bronze":    "common",
	"silver":    "uncommon",
	"gold":      "rare",
	"platinum":  "epic",
	"legendary": "legendary",
}

// MintNFT issues a badge NFT. A user can hold at most one minted NFT per
// (badge_type, badge_level) pair; a repeat mint fails with ErrConflict.
// The mint grants the matching badge and mint points atomically.
func (s *Store) MintNFT(userID int64, badgeType, badgeLevel string) (*NFT, error) {
	if !badgeTypes[badgeType] {
		return nil, fmt.Errorf("%w: unknown badge type %q", ErrInvalidArgument, badgeType)
	}
	if !badgeLevels[badgeLevel] {
		return nil, fmt.Errorf("%w: unknown badge level %q", ErrInvalidArgument, badgeLevel)
	}

	now := time.Now().UTC()
	nft := &NFT{
		OwnerID:    userID,
		TokenID:    uuid.NewString(),
		Contract:   nftContract,
		BadgeType:  badgeType,
		BadgeLevel: badgeLevel,
		Rarity:     badgeRarity[badgeLevel],
		Status:     NFTStatusMinted,
		MintedAt:   now,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&User{}, userID).Error; err != nil {
			return asStoreErr(err)
		}
		var count int64
		if err := tx.Model(&NFT{}).
			Where("owner_id = ? AND badge_type = ? AND badge_level = ? AND status = ?",
				userID, badgeType, badgeLevel, NFTStatusMinted).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s/%s already minted", ErrConflict, badgeType, badgeLevel)
		}
		if err := tx.Create(nft).Error; err != nil {
			return err
		}
		if _, err := addBadgeTx(tx, userID, badgeType+"_"+badgeLevel); err != nil {
			return err
		}
		_, err := addPointsTx(tx, userID, PointsMintNFT)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nft, nil
}

func (s *Store) ListUserNFTs(userID int64) ([]NFT, error) {
	var nfts []NFT
	err := s.DB.Where("owner_id = ?", userID).Order("minted_at DESC").Find(&nfts).Error
	return nfts, err
}

func (s *Store) GetNFTByToken(tokenID string) (*NFT, error) {
	var nft NFT
	if err := s.DB.First(&nft, "token_id = ?", tokenID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &nft, nil
}
