package service

import "plantaton/internal/apperr"

var (
	ErrUserNotFound = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrUserBanned   = apperr.Forbidden("USER_BANNED", "Your account has been suspended")
	ErrInvalidInput = apperr.Validation("INVALID_INPUT", "Invalid input")

	// farm
	ErrInvalidPlot      = apperr.Validation("INVALID_PLOT", "Invalid plot index")
	ErrPlotNotFound     = apperr.NotFound("PLOT_NOT_FOUND", "Plot not found")
	ErrPlotNotEmpty     = apperr.Conflict("PLOT_NOT_EMPTY", "Plot is already planted")
	ErrNothingToHarvest = apperr.Conflict("NOTHING_TO_HARVEST", "Nothing to harvest")
	ErrTooEarly         = apperr.Conflict("TOO_EARLY", "Not ready yet")

	// rewards
	ErrDailyBonusClaimed   = apperr.Conflict("DAILY_BONUS_CLAIMED", "Daily bonus already claimed")
	ErrDailyBonusDisabled  = apperr.Conflict("DAILY_BONUS_DISABLED", "Daily bonus is disabled")
	ErrTaskNotFound        = apperr.NotFound("TASK_NOT_FOUND", "Task not found")
	ErrTaskInactive        = apperr.Conflict("TASK_INACTIVE", "Task is not active")
	ErrTaskAlreadyStarted  = apperr.Conflict("TASK_ALREADY_STARTED", "Task already started")
	ErrTaskNotStarted      = apperr.Conflict("TASK_NOT_STARTED", "Task not started")
	ErrTaskAlreadyClaimed  = apperr.Conflict("ALREADY_CLAIMED", "Reward already claimed")
	ErrVerificationPending = apperr.Conflict("VERIFICATION_PENDING", "Please wait for verification")
	ErrInvalidTask         = apperr.Validation("INVALID_TASK", "Invalid task")
	ErrPromoNotFound       = apperr.NotFound("PROMO_NOT_FOUND", "Code not found")
	ErrPromoUnavailable    = apperr.Conflict("PROMO_UNAVAILABLE", "Code already used or expired")
	ErrInvalidPromo        = apperr.Validation("INVALID_PROMO", "Invalid promo code")
	ErrPromoExists         = apperr.Conflict("PROMO_CODE_EXISTS", "Code already exists")

	// withdrawals
	ErrInvalidAmount         = apperr.Validation("INVALID_AMOUNT", "Invalid amount")
	ErrBelowMinimum          = apperr.Validation("BELOW_MINIMUM", "Amount is below the minimum withdrawal")
	ErrInvalidAddress        = apperr.Validation("INVALID_ADDRESS", "Invalid TON wallet address")
	ErrInsufficientBalance   = apperr.Conflict("INSUFFICIENT_BALANCE", "Insufficient balance")
	ErrWithdrawalNotFound    = apperr.NotFound("WITHDRAWAL_NOT_FOUND", "Withdrawal not found")
	ErrWithdrawalProcessed   = apperr.Conflict("WITHDRAWAL_ALREADY_PROCESSED", "Withdrawal already processed")
	ErrInvalidWithdrawStatus = apperr.Validation("INVALID_STATUS", "Status must be approved or rejected")

	// settings
	ErrInvalidSetting = apperr.Validation("INVALID_SETTING", "Invalid setting")

	// auth
	ErrInvalidInitData  = apperr.Unauthorized("INVALID_INIT_DATA", "Invalid Telegram init data")
	ErrInvalidAdminCode = apperr.Unauthorized("INVALID_ADMIN_CODE", "Invalid admin code")
)
