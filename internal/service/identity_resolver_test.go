package service

import (
	"context"
	"errors"
	"testing"
)

func TestIdentityResolver(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewIdentityResolver(env.repo.User)

	tests := []struct {
		name      string
		principal string
		confirmed string
		want      string
		wantErr   error
	}{
		{"普通账号", userA, "", userA, nil},
		{"普通账号忽略确认成员", userA, userB, userA, nil},
		{"共享账号已确认", userKiosk, userB, userB, nil},
		{"共享账号未确认", userKiosk, "", "", ErrAmbiguousActor},
		{"确认为共享账号", userKiosk, userKiosk, "", ErrAmbiguousActor},
		{"确认成员不存在", userKiosk, "user-missing", "", ErrUserNotFound},
		{"调用账号不存在", "user-missing", "", "", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveActingIdentity(context.Background(), tt.principal, tt.confirmed)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("期望 %v，实际: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("期望成功，实际: %v", err)
			}
			if got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}

	if KindOf(ErrAmbiguousActor) != KindAmbiguousActor {
		t.Errorf("ErrAmbiguousActor 期望归类为 %s", KindAmbiguousActor)
	}
}
