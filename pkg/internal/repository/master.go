package repository

import (
	"context"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// LocationIDs 返回全部已存在的地点 id.
func (r *Repository) LocationIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.Location{}).Pluck("id", &ids).Error

	return ids, err
}

// ProductsByFile 返回文件内的全部产品.
func (r *Repository) ProductsByFile(ctx context.Context, fileID uint) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&products).Error

	return products, err
}

// ItemsByFile 返回文件内的全部物品.
func (r *Repository) ItemsByFile(ctx context.Context, fileID uint) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&items).Error

	return items, err
}

// CreateLocations 批量插入地点，已存在的 id 忽略.
func (r *Repository) CreateLocations(ctx context.Context, locs []model.Location) error {
	return createInBatches(ctx, r.db, locs, r.batchSize)
}

// CreateProducts 批量插入产品.
func (r *Repository) CreateProducts(ctx context.Context, products []model.Product) error {
	return createInBatches(ctx, r.db, products, r.batchSize)
}

// CreateItems 批量插入物品.
func (r *Repository) CreateItems(ctx context.Context, items []model.Item) error {
	return createInBatches(ctx, r.db, items, r.batchSize)
}

// FindProducts 按 company|product 键查询文件内产品，用于回填数据库生成的 id.
func (r *Repository) FindProducts(ctx context.Context, fileID uint, keys []string) ([]model.Product, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var all []model.Product
	if err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&all).Error; err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	out := all[:0]
	for _, p := range all {
		if _, ok := wanted[p.CacheKey()]; ok {
			out = append(out, p)
		}
	}

	return out, nil
}

// FindItems 按 code 查询文件内物品.
func (r *Repository) FindItems(ctx context.Context, fileID uint, codes []string) ([]model.Item, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var items []model.Item

	for start := 0; start < len(codes); start += r.batchSize {
		end := min(start+r.batchSize, len(codes))

		var part []model.Item
		if err := r.db.WithContext(ctx).
			Where("file_id = ? AND code IN ?", fileID, codes[start:end]).
			Find(&part).Error; err != nil {
			return nil, err
		}

		items = append(items, part...)
	}

	return items, nil
}

// AssetRoutes 返回全部合法路线.
func (r *Repository) AssetRoutes(ctx context.Context) ([]model.AssetRoute, error) {
	var routes []model.AssetRoute
	err := r.db.WithContext(ctx).Find(&routes).Error

	return routes, err
}

// AssetProducts 返回全部已知产品.
func (r *Repository) AssetProducts(ctx context.Context) ([]model.AssetProduct, error) {
	var products []model.AssetProduct
	err := r.db.WithContext(ctx).Find(&products).Error

	return products, err
}

// SaveAssetRoutes 写入合法路线参考数据，重复边忽略.
func (r *Repository) SaveAssetRoutes(ctx context.Context, routes []model.AssetRoute) error {
	return createInBatches(ctx, r.db, routes, r.batchSize)
}

// SaveAssetProducts 写入已知产品参考数据，重复项忽略.
func (r *Repository) SaveAssetProducts(ctx context.Context, products []model.AssetProduct) error {
	return createInBatches(ctx, r.db, products, r.batchSize)
}
