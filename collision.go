package quill

import (
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/dispatch"
)

// updateAabbs refreshes the proxies. A body with continuous collision gets
// its bounds swept up to the predicted position, so the pairs it may hit
// during the step exist before the time of impact pass.
func (w *World) updateAabbs() {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		body.UpdateAABB()
	})

	for _, body := range w.Bodies {
		proxy, ok := w.proxies[body]
		if !ok {
			continue
		}

		aabb := body.AABB()
		if body.CcdMotionThreshold > 0 && body.IsActive() {
			aabb = aabb.Sweep(body.PredictedTransform.Position.Sub(body.Transform.Position))
		}
		if err := w.Broadphase.SetAABB(proxy, aabb); err != nil {
			w.Logger.Warn("stale proxy", "body", body.ID, "err", err)
		}
	}
}

// performDiscreteCollisionDetection brings the pair cache up to date, then
// refreshes the manifold of every pair at the current transforms.
func (w *World) performDiscreteCollisionDetection(h float64) {
	w.updateAabbs()
	w.Broadphase.CalculateOverlappingPairs()

	info := dispatch.NewDispatcherInfo(h)
	info.StepCount = w.stepCount
	w.Dispatcher.DispatchAllCollisionPairs(w.Broadphase.OverlappingPairCache(), info)
}

// integrateTransforms moves the awake bodies with their solved velocities.
// Fast bodies are stopped at their earliest time of impact.
func (w *World) integrateTransforms(h float64) {
	ccd := false
	for _, body := range w.Bodies {
		if body.IsStatic() || !body.IsActive() {
			continue
		}
		body.PredictIntegratedTransform(h)
		if body.CcdMotionThreshold > 0 {
			ccd = true
		}
	}

	if ccd {
		info := dispatch.NewDispatcherInfo(h)
		info.StepCount = w.stepCount
		info.DispatchFunc = dispatch.DispatchContinuous
		info.CcdMargin = w.CcdMargin
		w.Dispatcher.DispatchAllCollisionPairs(w.Broadphase.OverlappingPairCache(), info)
	}

	for _, body := range w.Bodies {
		if body.IsStatic() || !body.IsActive() {
			continue
		}

		target := body.PredictedTransform
		if body.HitFraction < 1 {
			w.Logger.Debug("clamped motion", "body", body.ID, "fraction", body.HitFraction)
			target = body.Transform.Lerp(target, body.HitFraction)
		}
		body.HitFraction = 1
		body.ProceedToTransform(target)
	}
}
