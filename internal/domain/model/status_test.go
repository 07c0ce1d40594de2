package model

import "testing"

// TestParseWatchStatus проверяет разбор статуса из строки.
func TestParseWatchStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    WatchStatus
		wantErr bool
	}{
		{name: "watching", input: "watching", want: StatusWatching},
		{name: "watched", input: "watched", want: StatusWatched},
		{name: "plan", input: "plan", want: StatusPlan},
		{name: "quit", input: "quit", want: StatusQuit},
		{name: "пустая строка", input: "", wantErr: true},
		{name: "неизвестный статус", input: "dropped", wantErr: true},
		{name: "регистр имеет значение", input: "Watched", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWatchStatus(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseWatchStatus(%q): ожидалась ошибка, получили %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWatchStatus(%q) ошибка: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseWatchStatus(%q) = %q, хотели %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestWatchStatusDisplayName проверяет отображаемые названия статусов.
func TestWatchStatusDisplayName(t *testing.T) {
	tests := []struct {
		status WatchStatus
		want   string
	}{
		{StatusWatching, "Смотрю"},
		{StatusWatched, "Посмотрел"},
		{StatusPlan, "Буду смотреть"},
		{StatusQuit, "Бросил"},
	}

	for _, tt := range tests {
		if got := tt.status.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, хотели %q", tt.status, got, tt.want)
		}
	}
}

// TestValidRating проверяет границы рейтинга.
func TestValidRating(t *testing.T) {
	for _, r := range []int{1, 5, 10} {
		if !ValidRating(r) {
			t.Errorf("ValidRating(%d) = false, хотели true", r)
		}
	}
	for _, r := range []int{0, -1, 11, 100} {
		if ValidRating(r) {
			t.Errorf("ValidRating(%d) = true, хотели false", r)
		}
	}
}
