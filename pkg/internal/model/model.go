// Package model 定义 gorm 持久化模型.
//
// 主数据（Location、Product、Item）在导入时首次出现即创建；Event 为扫描事件；
// Trip、RuleAnomaly、ScoreAnomaly 与 Summary 为分析产物，重新分析时整体替换.
package model

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{
		&File{},
		&Location{},
		&Product{},
		&Item{},
		&Event{},
		&Trip{},
		&RuleAnomaly{},
		&ScoreAnomaly{},
		&Summary{},
		&AssetRoute{},
		&AssetProduct{},
	}
}
