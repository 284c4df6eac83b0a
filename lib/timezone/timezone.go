package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		panic(err)
	}
}

// force timezone to be KST since the portal keys menus on korean
// wall-clock dates; servers in other regions would otherwise shift
// day boundaries when using <time.Time>.Year()/Month()/Day()
func Now() time.Time {
	return time.Now().In(Location)
}
