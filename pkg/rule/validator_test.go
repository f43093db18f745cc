package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/hsk3232/DevelopProject/pkg/rule"
)

// scoringOptions 模拟评分客户端的配置约束.
type scoringOptions struct {
	URL       string `mapstructure:"url"        rule:"required,notblank,url"`
	BatchSize int    `mapstructure:"batch_size" rule:"min=1"`
	Retries   int    `mapstructure:"retries"    rule:"min=0"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	engine := rule.Engine()
	if engine == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	valid := scoringOptions{URL: "http://scoring.local/api", BatchSize: 100, Retries: 0}
	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("Expected no error for valid options, got %v", err)
	}

	// 批大小为 0
	if err := rule.ValidateStruct(scoringOptions{URL: "http://scoring.local/api", BatchSize: 0}); err == nil {
		t.Error("Expected error for batch_size=0, got nil")
	}

	// 重试次数为负
	if err := rule.ValidateStruct(scoringOptions{URL: "http://scoring.local/api", BatchSize: 1, Retries: -1}); err == nil {
		t.Error("Expected error for retries=-1, got nil")
	}

	// 仅包含空白的地址
	if err := rule.ValidateStruct(scoringOptions{URL: "   ", BatchSize: 1}); err == nil {
		t.Error("Expected error for blank url, got nil")
	}
}

// TestErrors 测试错误字典使用 mapstructure 名称作为键.
func TestErrors(t *testing.T) {
	err := rule.ValidateStruct(scoringOptions{URL: "", BatchSize: 0})
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}

	errs := rule.Errors(err)
	if _, ok := errs["url"]; !ok {
		t.Errorf("Expected key url in %v", errs)
	}

	if msg, ok := errs["batch_size"]; !ok || msg != "failed on min=1" {
		t.Errorf("Expected batch_size to fail on min=1, got %q", msg)
	}

	if rule.Errors(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

// TestNotBlank 测试 notblank 校验.
func TestNotBlank(t *testing.T) {
	if err := rule.ValidateVar("  x ", "notblank"); err != nil {
		t.Errorf("Expected no error for non-blank string, got %v", err)
	}

	if err := rule.ValidateVar(" \t ", "notblank"); err == nil {
		t.Error("Expected error for blank string, got nil")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	// 有效地址
	err := rule.ValidateVar("https://scoring.local/v1/detect", "required,url")
	if err != nil {
		t.Errorf("Expected no error for valid url, got %v", err)
	}

	// 无效地址
	err = rule.ValidateVar("scoring", "required,url")
	if err == nil {
		t.Error("Expected error for invalid url, got nil")
	}

	// 有效阈值
	err = rule.ValidateVar(0.95, "gte=0,lte=1")
	if err != nil {
		t.Errorf("Expected no error for valid threshold, got %v", err)
	}

	// 无效阈值
	err = rule.ValidateVar(1.5, "gte=0,lte=1")
	if err == nil {
		t.Error("Expected error for invalid threshold, got nil")
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	// 注册自定义验证：检查 EPC 业务步骤是否为规范词汇
	err := rule.RegisterValidation("business_step", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "Factory", "WMS", "LogiHub", "Wholesaler", "Reseller", "POS":
			return true
		default:
			return false
		}
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	err = rule.ValidateVar("LogiHub", "business_step")
	if err != nil {
		t.Errorf("Expected no error for canonical step, got %v", err)
	}

	err = rule.ValidateVar("logistics_hub", "business_step")
	if err == nil {
		t.Error("Expected error for raw step, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("csvname", "required,endswith=.csv")

	err := rule.ValidateVar("events.csv", "csvname")
	if err != nil {
		t.Errorf("Expected no error for csv name with alias, got %v", err)
	}

	err = rule.ValidateVar("events.xlsx", "csvname")
	if err == nil {
		t.Error("Expected error for non-csv name with alias, got nil")
	}
}
