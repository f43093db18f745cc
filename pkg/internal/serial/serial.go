// Package serial 维护各工厂 lot 号对应的序列号区间，用于判断物品 lot/serial 组合是否可能为真.
//
// 区间表在 New 时一次性生成，之后只读，可在多个分析任务间共享.
package serial

import (
	"sort"
	"strconv"
	"strings"
)

// 工厂名称.
const (
	FactoryHwaseong = "화성"
	FactoryIncheon  = "인천"
	FactoryGumi     = "구미"
	FactoryYangsan  = "양산"
)

const (
	countPerLot   = 2000
	resetInterval = 16
)

// Range 闭区间 [Start, End].
type Range struct {
	Start int
	End   int
}

// Contains 判断 n 是否落在区间内.
func (r Range) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// factorySpec 工厂的起始 lot 与 lot 数量.
type factorySpec struct {
	name     string
	startLot int
	lots     int
}

var factories = []factorySpec{
	{FactoryHwaseong, 50001, 26},
	{FactoryIncheon, 10001, 51},
	{FactoryGumi, 150001, 11},
	{FactoryYangsan, 100001, 32},
}

// factoryCodes hub type 中的工厂代码，按顺序匹配.
var factoryCodes = []struct {
	code, alias, factory string
}{
	{"HWS", FactoryHwaseong, FactoryHwaseong},
	{"ICN", FactoryIncheon, FactoryIncheon},
	{"GUM", FactoryGumi, FactoryGumi},
	{"YGS", FactoryYangsan, FactoryYangsan},
}

// Validator 工厂 → lot → 序列号区间.
type Validator struct {
	ranges map[string]map[int]Range
	lots   map[string]struct{}
}

// New 构建区间表.
func New() *Validator {
	v := &Validator{
		ranges: make(map[string]map[int]Range, len(factories)),
		lots:   make(map[string]struct{}),
	}

	for _, f := range factories {
		lotRanges := buildRanges(f.startLot, f.lots)
		v.ranges[f.name] = lotRanges

		for lot := range lotRanges {
			v.lots[strconv.Itoa(lot)] = struct{}{}
		}
	}

	return v
}

// buildRanges 按批次编号规则生成区间：每 resetInterval 个 lot 的第一个只有单个序列号，
// 最后一个长度为 1999，之后序列号从 1 重新开始.
func buildRanges(startLot, lotCount int) map[int]Range {
	out := make(map[int]Range, lotCount)
	start := 1

	for i := range lotCount {
		end := start + countPerLot - 1

		switch {
		case i%resetInterval == 0:
			end = start
		case (i+1)%resetInterval == 0:
			end = start + countPerLot - 2
		}

		out[startLot+i] = Range{Start: start, End: end}

		if (i+1)%resetInterval == 0 {
			start = 1
		} else {
			start = end + 1
		}
	}

	return out
}

// AllKnownLots 返回全部已知 lot 号（十进制字符串，升序）.
func (v *Validator) AllKnownLots() []string {
	lots := make([]string, 0, len(v.lots))
	for lot := range v.lots {
		lots = append(lots, lot)
	}

	sort.Slice(lots, func(i, j int) bool {
		a, _ := strconv.Atoi(lots[i])
		b, _ := strconv.Atoi(lots[j])

		return a < b
	})

	return lots
}

// IsKnownLot 判断 lot 是否属于任一工厂，允许前导零.
func (v *Validator) IsKnownLot(lot string) bool {
	n, ok := parseLot(lot)
	if !ok {
		return false
	}

	_, known := v.lots[strconv.Itoa(n)]

	return known
}

// IsPotentiallyValidSerial 判断 n 是否落在任一工厂任一 lot 的区间内.
func (v *Validator) IsPotentiallyValidSerial(n int) bool {
	if n <= 0 {
		return false
	}

	for _, lotRanges := range v.ranges {
		for _, r := range lotRanges {
			if r.Contains(n) {
				return true
			}
		}
	}

	return false
}

// IsValid 判断 n 是否落在指定工厂、指定 lot 的区间内.
func (v *Validator) IsValid(factory, lot string, n int) bool {
	lotRanges, ok := v.ranges[factory]
	if !ok {
		return false
	}

	lotNo, ok := parseLot(lot)
	if !ok {
		return false
	}

	r, ok := lotRanges[lotNo]

	return ok && r.Contains(n)
}

// RangeOf 返回指定工厂、lot 的区间.
func (v *Validator) RangeOf(factory string, lot int) (Range, bool) {
	r, ok := v.ranges[factory][lot]

	return r, ok
}

// ExtractFactory 从 hub type 中识别工厂，未识别返回空串.
func ExtractFactory(hubType string) string {
	for _, fc := range factoryCodes {
		if strings.Contains(hubType, fc.code) || strings.Contains(hubType, fc.alias) {
			return fc.factory
		}
	}

	return ""
}

func parseLot(lot string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(lot))
	if err != nil {
		return 0, false
	}

	return n, true
}
