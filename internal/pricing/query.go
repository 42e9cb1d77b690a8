package pricing

// priceQuery selects tomorrow's hourly totals for every home of the viewer.
const priceQuery = `query PriceInfo {
  viewer {
    homes {
      currentSubscription {
        priceInfo {
          tomorrow {
            total
            startsAt
          }
        }
      }
    }
  }
}`
