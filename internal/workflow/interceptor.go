package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/searchvault/internal/search"
)

// ErrorTypingInterceptor wraps activity errors in an ApplicationError typed
// with the activity name, so failures show up per activity in the Temporal
// UI. Errors for endpoints outside the allow-list are made non-retryable.
type ErrorTypingInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (e *ErrorTypingInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &errorTypingActivityInterceptor{next: next}
}

type errorTypingActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (e *errorTypingActivityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return e.next.Init(outbound)
}

func (e *errorTypingActivityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	result, err := e.next.ExecuteActivity(ctx, in)
	if err == nil {
		return result, nil
	}
	return result, typeActivityError(activity.GetInfo(ctx).ActivityType.Name, err)
}

// typeActivityError leaves already typed errors alone.
func typeActivityError(activityName string, err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return err
	}
	if errors.Is(err, search.ErrInvalidEndpoint) {
		return temporal.NewNonRetryableApplicationError(err.Error(), activityName, err)
	}
	return temporal.NewApplicationError(err.Error(), activityName, err)
}
