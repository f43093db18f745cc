package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// saveMasters 提取分块中首次出现的地点、产品、物品，写入后回填缓存.
func (in *Ingester) saveMasters(ctx context.Context, fileID uint, rows []row, cache *importCache) error {
	var (
		newLocs     []model.Location
		newProducts []model.Product
		newItems    []model.Item
	)

	pendingLocs := map[uint64]struct{}{}
	pendingProducts := map[string]struct{}{}
	pendingItems := map[string]struct{}{}

	for _, rw := range rows {
		if id, err := strconv.ParseUint(rw.Get(ColLocationID), 10, 64); err == nil {
			_, known := cache.locations[id]
			_, pending := pendingLocs[id]

			if !known && !pending {
				pendingLocs[id] = struct{}{}
				newLocs = append(newLocs, model.Location{
					ID:           id,
					ScanLocation: rw.Get(ColScanLocation),
					OperatorID:   parseInt(rw.Get(ColOperatorID)),
					DeviceID:     parseInt(rw.Get(ColDeviceID)),
				})
			}
		}

		company, product := rw.Get(ColEPCCompany), rw.Get(ColEPCProduct)
		if company != "" && product != "" {
			key := model.ProductKey(company, product)
			_, known := cache.products[key]
			_, pending := pendingProducts[key]

			if !known && !pending {
				pendingProducts[key] = struct{}{}
				newProducts = append(newProducts, model.Product{
					FileID:      fileID,
					CompanyCode: company,
					ProductCode: product,
					ProductName: rw.Get(ColProductName),
				})
			}
		}

		if code := rw.Get(ColEPCCode); code != "" {
			_, known := cache.items[code]
			_, pending := pendingItems[code]

			if !known && !pending {
				pendingItems[code] = struct{}{}
				newItems = append(newItems, model.Item{
					FileID:          fileID,
					Code:            code,
					Header:          rw.Get(ColEPCHeader),
					Lot:             rw.Get(ColEPCLot),
					Serial:          rw.Get(ColEPCSerial),
					ManufactureDate: in.parseDate(rw.Get(ColManufactureDate), in.opts.ManufactureLayout),
					ExpiryDate:      in.parseDate(rw.Get(ColExpiryDate), in.opts.ExpiryLayout),
				})
			}
		}
	}

	if len(newLocs) > 0 {
		if err := in.store.CreateLocations(ctx, newLocs); err != nil {
			return fmt.Errorf("save locations: %w", err)
		}

		for id := range pendingLocs {
			cache.locations[id] = struct{}{}
		}
	}

	if len(newProducts) > 0 {
		if err := in.store.CreateProducts(ctx, newProducts); err != nil {
			return fmt.Errorf("save products: %w", err)
		}

		keys := make([]string, 0, len(pendingProducts))
		for k := range pendingProducts {
			keys = append(keys, k)
		}

		saved, err := in.store.FindProducts(ctx, fileID, keys)
		if err != nil {
			return fmt.Errorf("reload products: %w", err)
		}

		for i := range saved {
			if _, ok := cache.products[saved[i].CacheKey()]; !ok {
				cache.products[saved[i].CacheKey()] = saved[i].ID
			}
		}
	}

	if len(newItems) > 0 {
		if err := in.store.CreateItems(ctx, newItems); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		codes := make([]string, 0, len(pendingItems))
		for c := range pendingItems {
			codes = append(codes, c)
		}

		saved, err := in.store.FindItems(ctx, fileID, codes)
		if err != nil {
			return fmt.Errorf("reload items: %w", err)
		}

		for i := range saved {
			cache.items[saved[i].Code] = saved[i].ID
		}
	}

	return nil
}

func (in *Ingester) parseDate(raw, layout string) *time.Time {
	if raw == "" {
		return nil
	}

	t, err := time.ParseInLocation(layout, raw, in.opts.Location)
	if err != nil {
		return nil
	}

	return &t
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}

	return n
}
