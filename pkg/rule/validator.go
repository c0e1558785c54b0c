// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
// 除内置规则外注册了 relpath（相对对象路径）与 segment（单个路径段）两个规则.
package rule

import (
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// initValidator 复用 gin 的 validator 引擎，使 ShouldBind 与 ValidateStruct 共享规则.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	_ = inst.RegisterValidation("relpath", validateRelPath)
	_ = inst.RegisterValidation("segment", validateSegment)
}

func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidationErrors 字段名到可读错误信息的映射.
type ValidationErrors map[string]string

// Errors 将 validator 的错误展开为 ValidationErrors；非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}

		out[fe.Field()] = msg
	}

	return out
}

// ValidateStruct 对结构体执行完整校验.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,email").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// validateRelPath 允许空串（根目录）；拒绝 ".."、反斜杠与控制字符.
func validateRelPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if strings.ContainsAny(p, "\\\x00") {
		return false
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || hasControl(seg) {
			return false
		}
	}

	return true
}

// validateSegment 要求非空且不含分隔符的单个名称.
func validateSegment(fl validator.FieldLevel) bool {
	s := fl.Field().String()

	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\\x00") && !hasControl(s)
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}

	return false
}
