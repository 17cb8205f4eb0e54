package application

import (
	"strconv"

	"blog-edge/middleware/gate/domain"
)

// Layout de chaves no store.
const (
	abuseScoreKey     = "abuse:score"
	abuseDetailPrefix = "abuse:detail:"
	fieldLastSeen     = "last_seen"
	fieldBucketPrefix = "bucket:"
	fieldKindPrefix   = "kind:"
)

func versionKey(ns string) string { return "cache:ver:" + ns }

func entryKey(ns string, epoch int64, digest string) string {
	return "cache:" + ns + ":" + strconv.FormatInt(epoch, 10) + ":" + digest
}

func counterKey(bucket domain.Bucket, key string) string {
	return "rl:" + string(bucket) + ":" + key
}

func detailKey(ip string) string { return abuseDetailPrefix + ip }
