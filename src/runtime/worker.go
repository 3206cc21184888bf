package runtime

import (
	"context"
	goruntime "runtime"

	"github.com/rs/zerolog"
)

// RunWorker drives the worker-side state machine described in §4.2: Init,
// Idle, Busy, Post, Terminated. It is transport-agnostic — slot hides
// whether the underlying mechanism is a HandshakeCell or a registerSlot.
// physicalID is the identity this worker advertises during bring-up; in
// simulation it is simply this worker's index.
func RunWorker(ctx context.Context, slot WorkerSlot, physicalID int, kernels *KernelRegistry, log zerolog.Logger) {
	slot.Advertise(physicalID)
	if !slot.AwaitReady(ctx) {
		log.Debug().Int("physical_id", physicalID).Msg("worker bring-up abandoned")
		return
	}
	log.Debug().Int("physical_id", physicalID).Str("core_type", slot.CoreType().String()).Msg("worker ready")

	for {
		task, quit := slot.Poll()
		if quit {
			log.Debug().Int("physical_id", physicalID).Msg("worker observed quit")
			return
		}
		if task == nil {
			goruntime.Gosched()
			continue
		}

		runKernel(task, kernels, log)
		slot.Complete()
	}
}

// runKernel invokes the task's indirected kernel. A nil kernel address or
// nil task is treated as "no work" and skipped, not an error, per §4.2.
func runKernel(task *Task, kernels *KernelRegistry, log zerolog.Logger) {
	if task == nil || task.KernelID == 0 {
		return
	}
	fn, ok := kernels.Lookup(task.KernelID)
	if !ok || fn == nil {
		log.Warn().Int("task_id", task.ID).Uint32("kernel_id", task.KernelID).Msg("unregistered kernel, skipping")
		return
	}
	fn(task.Args)
}
