package cache

import (
	"strconv"
	"strings"

	"github.com/geocoder89/taskdeck/internal/domain/task"
)

func TasksVersionKey(ownerID string) string {
	return "tasks:ver:" + ownerID
}

// BuildTasksListCacheKey folds every list parameter plus the owner's write
// version into the key, so any write makes older pages unreachable.
func BuildTasksListCacheKey(version int64, f task.ListFilter) string {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	priorities := make([]string, 0, len(f.Priorities))
	for _, p := range f.Priorities {
		priorities = append(priorities, string(p))
	}

	typ := ""
	if f.Type != nil {
		typ = strings.ToLower(strings.TrimSpace(*f.Type))
	}
	fav := ""
	if f.Favorite != nil {
		fav = strconv.FormatBool(*f.Favorite)
	}
	q := ""
	if f.Query != nil {
		q = strings.ToLower(*f.Query)
	}

	return "tasks:list:v1:owner=" + f.OwnerID +
		":ver=" + strconv.FormatInt(version, 10) +
		":status=" + strings.Join(statuses, ",") +
		":priority=" + strings.Join(priorities, ",") +
		":type=" + typ +
		":favorite=" + fav +
		":q=" + q +
		":sort=" + string(f.Sort) +
		":desc=" + strconv.FormatBool(f.Desc) +
		":limit=" + strconv.Itoa(f.Limit) +
		":offset=" + strconv.Itoa(f.Offset)
}
