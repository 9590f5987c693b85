package service

import (
	"strings"

	"github.com/TIANLI0/MarkKit/model"
)

const markCommandPrefix = "logo_"

// MarkCommand 解析后的图标命令
type MarkCommand struct {
	Axis  model.Axis
	Marks []string
}

// ParseMarkCommand 解析 /logo_<名称...>[_top|_side] 形式的命令。
//
//	/logo_all_side        -> side, 全部图标
//	/logo_virgo_leo       -> top, [virgo leo]
//	/logo_all@SomeBot     -> top, 全部图标
func ParseMarkCommand(text string) (MarkCommand, error) {
	cmd := strings.TrimSpace(text)
	if i := strings.IndexAny(cmd, " \t\n"); i >= 0 {
		cmd = cmd[:i]
	}
	cmd = strings.TrimPrefix(cmd, "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	cmd = strings.ToLower(cmd)

	if !strings.HasPrefix(cmd, markCommandPrefix) {
		return MarkCommand{}, NewError(ErrCodeInvalidInput, "%q is not a mark command", text)
	}

	var tokens []string
	for _, t := range strings.Split(strings.TrimPrefix(cmd, markCommandPrefix), "_") {
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	axis := model.AxisTop
	if n := len(tokens); n > 0 {
		if a, err := model.ParseAxis(tokens[n-1]); err == nil {
			axis = a
			tokens = tokens[:n-1]
		}
	}
	if len(tokens) == 0 {
		return MarkCommand{}, NewError(ErrCodeInvalidInput, "%q names no marks", text)
	}

	return MarkCommand{Axis: axis, Marks: tokens}, nil
}
