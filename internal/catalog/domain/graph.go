package domain

import (
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// ValidateStageGraph 模板编写期的依赖图校验
// 约束：阶段序号从 1 开始且唯一；依赖必须指向同模板内的阶段；
// 依赖阶段的序号必须早于本阶段（由此保证无环，运行期无需环检测）。
func ValidateStageGraph(stages []Stage) error {
	byID := make(map[uint]*Stage, len(stages))
	orders := make(map[int]bool, len(stages))
	for i := range stages {
		s := &stages[i]
		if s.Order < 1 {
			return apperrors.Validation("stage %q has invalid order %d, must be >= 1", s.Name, s.Order)
		}
		if orders[s.Order] {
			return apperrors.Validation("duplicate stage order %d in template", s.Order)
		}
		orders[s.Order] = true
		byID[s.ID] = s
	}
	for i := range stages {
		s := &stages[i]
		for _, depID := range s.DependsOn {
			dep, ok := byID[depID]
			if !ok {
				return apperrors.Validation("stage %q depends on unknown stage %d", s.Name, depID)
			}
			if dep.Order >= s.Order {
				return apperrors.Validation("stage %q (order %d) may not depend on later stage %q (order %d)",
					s.Name, s.Order, dep.Name, dep.Order)
			}
		}
	}
	return nil
}
