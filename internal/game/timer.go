package game

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal"
)

// =============================================================================
// BACKGROUND LOOPS
// =============================================================================

// startTossupReveal launches the toss-up reveal loop unless one is already
// running for the room. The loop reveals one letter per tick and exits once a
// controller buzzes in, the reveal order is empty or the phase changes.
func (s *Service) startTossupReveal(room *internal.Room) {
	room.Mu.Lock()
	if room.Tossup.RevealRunning || room.Phase != internal.PhaseTossup {
		room.Mu.Unlock()
		return
	}
	room.Tossup.RevealRunning = true
	ctx := room.Context
	room.Mu.Unlock()

	log.Debug().Str("room", room.Id).Dur("every", s.opts.RevealEvery).Msg("[startTossupReveal] loop started")

	go func() {
		ticker := time.NewTicker(s.opts.RevealEvery)
		defer ticker.Stop()

		for {
			room.Mu.Lock()
			if room.Phase != internal.PhaseTossup || room.Tossup.ControllerConn != "" || len(room.Tossup.RevealOrder) == 0 {
				room.Tossup.RevealRunning = false
				room.Mu.Unlock()
				log.Debug().Str("room", room.Id).Msg("[startTossupReveal] loop stopped")
				return
			}

			changed := room.TossupRevealStep(1) > 0
			var snap internal.RoomSnapshot
			var err error
			if changed {
				snap, err = s.snapshot(ctx, room)
			}
			room.Mu.Unlock()

			if err != nil {
				log.Error().Err(err).Str("room", room.Id).Msg("[startTossupReveal] snapshot failed")
			} else if changed {
				s.out.Broadcast(room.Id, msg("state", snap))
			}

			select {
			case <-ctx.Done():
				room.Mu.Lock()
				room.Tossup.RevealRunning = false
				room.Mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
}

// startFinalCountdown launches the final-round countdown unless it is already
// running. Every tick broadcasts the remaining time; at zero the final ends.
func (s *Service) startFinalCountdown(room *internal.Room) {
	room.Mu.Lock()
	if room.Final.TimerRunning || room.Phase != internal.PhaseFinal || room.Final.Stage != internal.FinalRunning {
		room.Mu.Unlock()
		return
	}
	room.Final.TimerRunning = true
	ctx := room.Context
	room.Mu.Unlock()

	log.Debug().Str("room", room.Id).Msg("[startFinalCountdown] countdown started")

	go func() {
		ticker := time.NewTicker(s.opts.CountdownTick)
		defer ticker.Stop()

		for {
			room.Mu.Lock()
			if room.Phase != internal.PhaseFinal || room.Final.Stage != internal.FinalRunning {
				room.Final.TimerRunning = false
				room.Mu.Unlock()
				log.Debug().Str("room", room.Id).Msg("[startFinalCountdown] countdown stopped")
				return
			}

			if rem := room.FinalRemainingSeconds(); rem != nil && *rem <= 0 {
				room.Final.Stage = internal.FinalDone
				room.Final.EndsAt = time.Time{}
				room.Phase = internal.PhaseNormal
				room.Final.TimerRunning = false
				done, err := s.snapshot(ctx, room)
				room.Mu.Unlock()

				log.Info().Str("room", room.Id).Msg("[startFinalCountdown] final time is up")
				s.out.Broadcast(room.Id, toastMsg("Final time is up!"))
				if err != nil {
					log.Error().Err(err).Str("room", room.Id).Msg("[startFinalCountdown] snapshot failed")
					return
				}
				s.out.Broadcast(room.Id, msg("state", done))
				return
			}

			tick, err := s.snapshot(ctx, room)
			room.Mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("room", room.Id).Msg("[startFinalCountdown] snapshot failed")
			} else {
				s.out.Broadcast(room.Id, msg("state", tick))
			}

			select {
			case <-ctx.Done():
				room.Mu.Lock()
				room.Final.TimerRunning = false
				room.Mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
}
