package gormstore

import (
	"time"

	"github.com/ngicks/varpoll/history"
)

type GormRecord struct {
	Id         string    `json:"id" gorm:"primaryKey;not null"`
	PollerId   string    `json:"poller_id" gorm:"not null;index:idx_poller_started"`
	Generation uint64    `json:"generation" gorm:"not null"`
	StartedAt  time.Time `json:"started_at" gorm:"not null;index:idx_poller_started"`
	ElapsedNs  int64     `json:"elapsed_ns"`
	NextNs     int64     `json:"next_ns"`
	Err        string    `json:"err"`
	Rearmed    bool      `json:"rearmed"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null;autoCreateTime:milli"`
}

func (GormRecord) TableName() string {
	return "poll_history"
}

func FromRecord(r history.Record) GormRecord {
	return GormRecord{
		Id:         r.Id,
		PollerId:   r.PollerId,
		Generation: r.Generation,
		StartedAt:  r.StartedAt.UTC(),
		ElapsedNs:  int64(r.Elapsed),
		NextNs:     int64(r.Next),
		Err:        r.Err,
		Rearmed:    r.Rearmed,
	}
}

func (g GormRecord) ToRecord() history.Record {
	return history.Record{
		Id:         g.Id,
		PollerId:   g.PollerId,
		Generation: g.Generation,
		StartedAt:  g.StartedAt,
		Elapsed:    time.Duration(g.ElapsedNs),
		Next:       time.Duration(g.NextNs),
		Err:        g.Err,
		Rearmed:    g.Rearmed,
	}
}
