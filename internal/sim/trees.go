package sim

import "github.com/zeusync/behavior/internal/core/behavior"

const (
	TreeWander = "wander"
	TreeTravel = "travel"
	TreeHunt   = "hunt"
	TreeGoto   = "goto"
)

// BuiltinTrees returns the trees every simulator catalogue starts with.
// async selects background path searches for the path based trees.
func BuiltinTrees(async bool) []*behavior.Tree {
	forever := behavior.RepeatOptions{Iterations: -1}
	return []*behavior.Tree{
		behavior.MustTree(TreeWander, func(b *behavior.Builder) {
			b.Repeater(forever, func(b *behavior.Builder) {
				b.Sequence(behavior.OrderOrdered, func(b *behavior.Builder) {
					goal := b.GetRandomPosition(behavior.RandomPositionVariable, behavior.RandomPositionOptions{Radius: 96})
					b.FollowPath(b.FindPath(goal, behavior.FindPathOptions{Async: async}))
				})
			})
		}),
		behavior.MustTree(TreeTravel, func(b *behavior.Builder) {
			b.FollowPath(b.FindPath(behavior.ArgumentVariable, behavior.FindPathOptions{Async: async}))
		}),
		behavior.MustTree(TreeGoto, func(b *behavior.Builder) {
			b.MoveTo(behavior.ArgumentVariable, behavior.MoveToOptions{Threshold: 1})
		}),
		behavior.MustTree(TreeHunt, func(b *behavior.Builder) {
			b.Repeater(forever, func(b *behavior.Builder) {
				b.Selector(behavior.OrderOrdered, func(b *behavior.Builder) {
					b.Sequence(behavior.OrderOrdered, func(b *behavior.Builder) {
						prey := b.GetNearest(128, behavior.NearestVariable)
						b.Target(prey)
						b.MoveTo(b.GetPosition(prey, behavior.PositionVariable), behavior.MoveToOptions{Threshold: 8, FailAfter: 40})
					})
					b.Sequence(behavior.OrderOrdered, func(b *behavior.Builder) {
						b.MoveTo(b.GetRandomPosition(behavior.RandomPositionVariable, behavior.RandomPositionOptions{Radius: 64}), behavior.MoveToOptions{FailAfter: 60})
					})
				})
			})
		}),
	}
}
