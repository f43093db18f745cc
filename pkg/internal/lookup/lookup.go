// Package lookup 加载规则检测所需的参考数据：合法路线集合与已知产品码、公司码、产品名集合.
//
// Lookup 构建后只读，可被并发的检测任务共享. Provider 通过 KV 快照在多个实例间复用加载结果.
package lookup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hsk3232/DevelopProject/pkg/internal/model"
)

// Store 参考数据来源.
type Store interface {
	AssetRoutes(ctx context.Context) ([]model.AssetRoute, error)
	AssetProducts(ctx context.Context) ([]model.AssetProduct, error)
}

type set map[string]struct{}

func newSet(values []string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}

	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]

	return ok
}

// Lookup 只读参考数据.
type Lookup struct {
	routes       set
	productCodes set
	companyCodes set
	productNames set
}

// RouteKey 有向边的键 "<from>-><to>".
func RouteKey(from, to uint64) string {
	return strconv.FormatUint(from, 10) + "->" + strconv.FormatUint(to, 10)
}

// New 由快照构建 Lookup.
func New(s Snapshot) *Lookup {
	return &Lookup{
		routes:       newSet(s.Routes),
		productCodes: newSet(s.ProductCodes),
		companyCodes: newSet(s.CompanyCodes),
		productNames: newSet(s.ProductNames),
	}
}

// IsValidRoute 判断 from→to 是否为合法路线.
func (l *Lookup) IsValidRoute(from, to uint64) bool {
	return l.routes.has(RouteKey(from, to))
}

// IsKnownProductCode 判断产品码是否已知.
func (l *Lookup) IsKnownProductCode(code string) bool { return l.productCodes.has(code) }

// IsKnownCompanyCode 判断公司码是否已知.
func (l *Lookup) IsKnownCompanyCode(code string) bool { return l.companyCodes.has(code) }

// IsKnownProductName 判断产品名是否已知.
func (l *Lookup) IsKnownProductName(name string) bool { return l.productNames.has(name) }

// RouteCount 合法路线数量.
func (l *Lookup) RouteCount() int { return len(l.routes) }

// Snapshot 可序列化的参考数据快照.
type Snapshot struct {
	Routes       []string `json:"routes"`
	ProductCodes []string `json:"product_codes"`
	CompanyCodes []string `json:"company_codes"`
	ProductNames []string `json:"product_names"`
}

// LoadSnapshot 从存储读取参考数据.
func LoadSnapshot(ctx context.Context, store Store) (Snapshot, error) {
	routes, err := store.AssetRoutes(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load asset routes: %w", err)
	}

	products, err := store.AssetProducts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load asset products: %w", err)
	}

	s := Snapshot{
		Routes:       make([]string, 0, len(routes)),
		ProductCodes: make([]string, 0, len(products)),
		CompanyCodes: make([]string, 0, len(products)),
		ProductNames: make([]string, 0, len(products)),
	}

	for _, r := range routes {
		s.Routes = append(s.Routes, RouteKey(r.FromLocationID, r.ToLocationID))
	}

	for _, p := range products {
		s.ProductCodes = append(s.ProductCodes, p.ProductCode)
		s.CompanyCodes = append(s.CompanyCodes, p.CompanyCode)
		s.ProductNames = append(s.ProductNames, p.ProductName)
	}

	return s, nil
}

// Load 直接从存储构建 Lookup.
func Load(ctx context.Context, store Store) (*Lookup, error) {
	s, err := LoadSnapshot(ctx, store)
	if err != nil {
		return nil, err
	}

	return New(s), nil
}
