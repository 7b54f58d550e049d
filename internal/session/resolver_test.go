package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverApprove(t *testing.T) {
	r := DefaultResolver()

	tests := []struct {
		name     string
		snapshot string
		want     string
		changed  bool
	}{
		{
			name:     "flags the destructive line",
			snapshot: "mkdisk -size=10\nrmdisk -id=A",
			want:     "mkdisk -size=10\nrmdisk -id=A -confirm=true",
			changed:  true,
		},
		{
			name:     "keeps the line terminator",
			snapshot: "rmdisk -id=A\nmount -id=B\n",
			want:     "rmdisk -id=A -confirm=true\nmount -id=B\n",
			changed:  true,
		},
		{
			name:     "matches case-insensitively after trimming",
			snapshot: "  RMDisk -id=A  \r\nmkdisk",
			want:     "RMDisk -id=A -confirm=true\r\nmkdisk",
			changed:  true,
		},
		{
			name:     "only the first unflagged line",
			snapshot: "rmdisk -id=A -confirm=true\nrmdisk -id=B\nrmdisk -id=C",
			want:     "rmdisk -id=A -confirm=true\nrmdisk -id=B -confirm=true\nrmdisk -id=C",
			changed:  true,
		},
		{
			name:     "no match is a no-op",
			snapshot: "mkdisk -size=10\nmount -id=B",
			want:     "mkdisk -size=10\nmount -id=B",
			changed:  false,
		},
		{
			name:     "already flagged is a no-op",
			snapshot: "rmdisk -id=A -CONFIRM=TRUE",
			want:     "rmdisk -id=A -CONFIRM=TRUE",
			changed:  false,
		},
		{
			name:     "empty snapshot",
			snapshot: "",
			want:     "",
			changed:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := r.Approve(tt.snapshot)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestResolverApproveIsIdempotentOnceFlagged(t *testing.T) {
	r := DefaultResolver()

	once, changed := r.Approve("mkdisk -size=10\nrmdisk -id=A")
	assert.True(t, changed)

	twice, changed := r.Approve(once)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
}

func TestResolverDeny(t *testing.T) {
	r := DefaultResolver()

	tests := []struct {
		name     string
		snapshot string
		want     string
		changed  bool
	}{
		{
			name:     "removes the trailing destructive line",
			snapshot: "mkdisk -size=10\nrmdisk -id=A",
			want:     "mkdisk -size=10\n",
			changed:  true,
		},
		{
			name:     "preserves order of the other lines",
			snapshot: "mkdisk -size=10\nrmdisk -id=A\nmount -id=B",
			want:     "mkdisk -size=10\nmount -id=B",
			changed:  true,
		},
		{
			name:     "only the first unflagged line",
			snapshot: "rmdisk -id=A\nrmdisk -id=B\n",
			want:     "rmdisk -id=B\n",
			changed:  true,
		},
		{
			name:     "skips flagged lines",
			snapshot: "rmdisk -id=A -confirm=true\nrmdisk -id=B",
			want:     "rmdisk -id=A -confirm=true\n",
			changed:  true,
		},
		{
			name:     "no match is a no-op",
			snapshot: "mkdisk -size=10",
			want:     "mkdisk -size=10",
			changed:  false,
		},
		{
			name:     "only line",
			snapshot: "rmdisk -id=A",
			want:     "",
			changed:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := r.Deny(tt.snapshot)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestResolverCustomCommand(t *testing.T) {
	r := Resolver{Command: "rmgrp", Flag: "-force", Marker: "CONFIRM:"}

	got, changed := r.Approve("mkgrp -name=a\nrmgrp -name=a")
	assert.True(t, changed)
	assert.Equal(t, "mkgrp -name=a\nrmgrp -name=a -force", got)

	got, changed = r.Approve("rmdisk -id=A")
	assert.False(t, changed)
	assert.Equal(t, "rmdisk -id=A", got)
}

func TestResolverStripMarker(t *testing.T) {
	r := DefaultResolver()

	assert.Equal(t, "delete disk A?", r.StripMarker("CONFIRM_RMDISK: delete disk A?"))
	assert.Equal(t, "plain message", r.StripMarker("  plain message "))
	assert.Equal(t, "x", Resolver{}.StripMarker(" x "))
}

func TestResolverWithoutCommandMatchesNothing(t *testing.T) {
	got, changed := Resolver{Flag: "-force"}.Approve("\nmkdisk -size=1\n")
	assert.False(t, changed)
	assert.Equal(t, "\nmkdisk -size=1\n", got)

	got, changed = DefaultResolver().Deny("\n\nrmdisk -id=A\n")
	assert.True(t, changed)
	assert.Equal(t, "\n\n", got)
}
